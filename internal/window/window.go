// Package window selects the messages of a transcript that are new for an import run.
package window

import (
	"sort"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
)

const (
	DefaultLookbackDays = 30
	DefaultMaxLines     = 2000
	minKeptLines        = 10
)

type Options struct {
	LookbackDays int
	MaxLines     int
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.LookbackDays <= 0 {
		o.LookbackDays = DefaultLookbackDays
	}
	if o.MaxLines <= 0 {
		o.MaxLines = DefaultMaxLines
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Window is the ordered run of messages eligible for extraction.
type Window struct {
	Messages []transcript.Message
	Start    time.Time // lookback boundary used for the selection
	Earliest time.Time
	Latest   time.Time
}

func (w Window) Empty() bool { return len(w.Messages) == 0 }

// Select keeps messages inside the lookback window and strictly newer than the
// checkpoint. Oversized windows are cut from the front, keeping the most recent
// max(10, min(count, MaxLines)) messages.
func Select(msgs []transcript.Message, checkpoint *time.Time, opts Options) Window {
	opts = opts.withDefaults()
	start := opts.Now().Add(-time.Duration(opts.LookbackDays) * 24 * time.Hour)

	var out []transcript.Message
	for _, m := range msgs {
		if m.Timestamp.IsZero() || m.Timestamp.Before(start) {
			continue
		}
		if checkpoint != nil && !m.Timestamp.After(*checkpoint) {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if len(out) > opts.MaxLines {
		keep := max(minKeptLines, min(len(out), opts.MaxLines))
		if keep < len(out) {
			out = out[len(out)-keep:]
		}
	}

	w := Window{Messages: out, Start: start}
	if len(out) > 0 {
		w.Earliest = out[0].Timestamp
		w.Latest = out[len(out)-1].Timestamp
	}
	return w
}
