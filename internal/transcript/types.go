package transcript

import "time"

// Message is one chat message parsed from an export.
type Message struct {
	Timestamp time.Time
	Sender    string
	Text      string
}

// Transcript is a parsed chat export. Messages are ordered by timestamp ascending.
type Transcript struct {
	ChatName string
	Messages []Message
}

// Options controls how wall-clock times in the export are interpreted.
type Options struct {
	// Location is the zone the exporting phone was in. Defaults to UTC.
	Location *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}
