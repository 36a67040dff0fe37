package transcript

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var maxEntrySize int64 = 64 << 20

var (
	ErrNoChatText        = errors.New("no chat text export found")
	ErrAmbiguousChatText = errors.New("multiple chat text exports found")
	ErrChatTextTooLarge  = errors.New("chat text export too large")
)

// extractChatText returns the single .txt entry of a zipped export and its name.
func extractChatText(data []byte) (string, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open archive: %w", err)
	}

	var candidates []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		base := path.Base(name)
		if strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(base, "._") {
			continue
		}
		if strings.EqualFold(path.Ext(base), ".txt") {
			candidates = append(candidates, f)
		}
	}

	var entry *zip.File
	switch len(candidates) {
	case 0:
		return "", nil, ErrNoChatText
	case 1:
		entry = candidates[0]
	default:
		for _, f := range candidates {
			base := path.Base(f.Name)
			if base == "_chat.txt" || strings.HasPrefix(strings.ToLower(base), "whatsapp chat") {
				if entry != nil {
					return "", nil, ErrAmbiguousChatText
				}
				entry = f
			}
		}
		if entry == nil {
			return "", nil, ErrAmbiguousChatText
		}
	}

	if entry.UncompressedSize64 > uint64(maxEntrySize) {
		return "", nil, fmt.Errorf("%s: %w", entry.Name, ErrChatTextTooLarge)
	}

	rc, err := entry.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	// The header size can lie; read one byte past the limit to catch it.
	text, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", entry.Name, err)
	}
	if int64(len(text)) > maxEntrySize {
		return "", nil, fmt.Errorf("%s: %w", entry.Name, ErrChatTextTooLarge)
	}
	return path.Base(entry.Name), text, nil
}
