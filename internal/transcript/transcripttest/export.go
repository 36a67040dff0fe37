// Package transcripttest builds chat exports for tests.
package transcripttest

import (
	"fmt"
	"strings"
	"time"
)

type Line struct {
	At     time.Time
	Sender string
	Text   string
}

// Export renders lines in the Android export format with four-digit years,
// which parse unambiguously. Times are written in UTC.
func Export(chatName string, lines []Line) []byte {
	var sb strings.Builder
	if chatName != "" {
		fmt.Fprintf(&sb, "WhatsApp Chat with %s\n", chatName)
	}
	for _, l := range lines {
		at := l.At.UTC()
		fmt.Fprintf(&sb, "%d-%02d-%02d, %02d:%02d:%02d - %s: %s\n",
			at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), l.Sender, l.Text)
	}
	return []byte(sb.String())
}
