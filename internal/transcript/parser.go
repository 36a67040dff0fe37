package transcript

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// 12/31/23, 9:41 PM - Alice: text
	androidHeader = regexp.MustCompile(`^(\d{1,4}[/.\-]\d{1,2}[/.\-]\d{1,4}),?\s+(\d{1,2}[:.]\d{2}(?:[:.]\d{2})?)(?:\s*([AaPp]\.?\s?[Mm]\.?))?\s*-\s*([^:]+?):\s?(.*)$`)
	// [31/12/2023, 21:41:05] Alice: text
	iosHeader = regexp.MustCompile(`^\[(\d{1,4}[/.\-]\d{1,2}[/.\-]\d{1,4}),?\s+(\d{1,2}[:.]\d{2}(?:[:.]\d{2})?)(?:\s*([AaPp]\.?\s?[Mm]\.?))?\]\s*([^:]+?):\s?(.*)$`)

	// 12/31/23, 9:41 PM - Messages and calls are end-to-end encrypted.
	systemLine = regexp.MustCompile(`^\[?\d{1,4}[/.\-]\d{1,2}[/.\-]\d{1,4},?\s+\d{1,2}[:.]\d{2}(?:[:.]\d{2})?(?:\s*[AaPp]\.?\s?[Mm]\.?)?\]?\s*-?\s*(.*)$`)

	chatTitle = regexp.MustCompile(`(?i)^(?:whatsapp chat with|whatsapp chat\s*-|chat history with)\s+(.+?)\s*$`)

	lineBreak = regexp.MustCompile(`\r?\n`)

	spaceReplacer = strings.NewReplacer("\u202f", " ", "\u00a0", " ", "\u200e", "", "\u200f", "")
)

const mediaOmitted = "<Media omitted>"

// iOS names the text entry of every zipped export this way.
const genericEntryStem = "_chat"

var encryptionNotices = []string{
	"messages and calls are end-to-end encrypted",
	"messages to this group are now secured with end-to-end encryption",
	"messages to this chat and calls are now secured with end-to-end encryption",
}

// Parse turns a raw export into a Transcript. A filename ending in .zip is read
// as an archive holding the text export. An export that yields no messages is
// not an error.
func Parse(filename string, data []byte, opts Options) (*Transcript, error) {
	name := fallbackChatName(filename)
	if strings.EqualFold(filepath.Ext(filename), ".zip") {
		entry, text, err := extractChatText(data)
		if err != nil {
			return nil, err
		}
		name = zipChatName(filename, entry)
		data = text
	}
	return parseText(string(data), name, opts), nil
}

// zipChatName prefers the archive entry's name unless it is the generic name
// every iOS export shares, in which case the uploaded filename identifies the chat.
func zipChatName(upload, entry string) string {
	stem := fileStem(entry)
	if chatTitle.MatchString(stem) || !strings.EqualFold(stem, genericEntryStem) {
		return fallbackChatName(entry)
	}
	return fallbackChatName(upload)
}

func parseText(text, fallbackName string, opts Options) *Transcript {
	loc := opts.location()
	text = strings.TrimPrefix(text, "\ufeff")
	lines := lineBreak.Split(text, -1)

	i := 0
	for i < len(lines) && strings.TrimSpace(spaceReplacer.Replace(lines[i])) == "" {
		i++
	}

	tr := &Transcript{ChatName: fallbackName}
	if i < len(lines) {
		first := strings.TrimSpace(spaceReplacer.Replace(lines[i]))
		if m := chatTitle.FindStringSubmatch(first); m != nil {
			tr.ChatName = strings.TrimSuffix(m[1], ".txt")
			i++
		}
	}

	var current *Message
	flush := func() {
		if current != nil {
			tr.Messages = append(tr.Messages, *current)
			current = nil
		}
	}

	for _, raw := range lines[i:] {
		line := spaceReplacer.Replace(raw)
		trimmed := strings.TrimSpace(line)
		if isBoilerplate(trimmed) {
			continue
		}

		match := androidHeader.FindStringSubmatch(trimmed)
		if match == nil {
			match = iosHeader.FindStringSubmatch(trimmed)
		}
		if match == nil {
			if current != nil && trimmed != "" {
				current.Text += "\n" + trimmed
			}
			continue
		}

		flush()
		ts, ok := parseTimestamp(match[1], match[2], match[3], loc)
		if !ok {
			continue
		}
		body := strings.TrimSpace(match[5])
		if body == mediaOmitted || isEncryptionNotice(body) {
			continue
		}
		current = &Message{
			Timestamp: ts,
			Sender:    strings.TrimSpace(match[4]),
			Text:      body,
		}
	}
	flush()

	sort.SliceStable(tr.Messages, func(a, b int) bool {
		return tr.Messages[a].Timestamp.Before(tr.Messages[b].Timestamp)
	})
	return tr
}

// isBoilerplate reports lines that are nothing but a system notice, with or
// without the timestamp WhatsApp puts in front of them.
func isBoilerplate(line string) bool {
	if line == mediaOmitted || isEncryptionNotice(line) {
		return true
	}
	if m := systemLine.FindStringSubmatch(line); m != nil {
		return isEncryptionNotice(m[1])
	}
	return false
}

// isEncryptionNotice matches only text that opens with the notice itself, so
// a message quoting it is kept.
func isEncryptionNotice(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, notice := range encryptionNotices {
		if strings.HasPrefix(lower, notice) {
			return true
		}
	}
	return false
}

func fileStem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fallbackChatName(filename string) string {
	stem := fileStem(filename)
	if m := chatTitle.FindStringSubmatch(stem); m != nil {
		return m[1]
	}
	return stem
}
