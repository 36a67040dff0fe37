package backfill

import (
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
)

// dedupWindow is the tolerance for matching message timestamps across exports.
const dedupWindow = 1 * time.Second

// overlapThreshold is the fraction of timestamps that must match to consider
// an export a copy of another.
const overlapThreshold = 0.8

// fileFingerprint holds timing info used to spot repeated exports of one chat,
// e.g. the .zip and the .txt of the same export, or an older partial export.
type fileFingerprint struct {
	Path       string
	ChatName   string
	Timestamps []time.Time
}

// BuildFingerprint creates a fingerprint from a parsed transcript.
func BuildFingerprint(path string, tr *transcript.Transcript) fileFingerprint {
	fp := fileFingerprint{
		Path:     path,
		ChatName: tr.ChatName,
	}
	for _, m := range tr.Messages {
		if !m.Timestamp.IsZero() {
			fp.Timestamps = append(fp.Timestamps, m.Timestamp)
		}
	}
	return fp
}

// FindDuplicates returns the paths of exports whose messages are covered by a
// larger export of the same chat. Of two equally sized copies the one with the
// lexically smaller path is kept.
func FindDuplicates(fps []fileFingerprint) map[string]bool {
	ordered := make([]fileFingerprint, len(fps))
	copy(ordered, fps)
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Timestamps) != len(ordered[j].Timestamps) {
			return len(ordered[i].Timestamps) > len(ordered[j].Timestamps)
		}
		return ordered[i].Path < ordered[j].Path
	})

	duplicates := make(map[string]bool)
	var kept []fileFingerprint
	for _, fp := range ordered {
		if len(fp.Timestamps) == 0 {
			kept = append(kept, fp)
			continue
		}
		dup := false
		for _, k := range kept {
			if strings.EqualFold(k.ChatName, fp.ChatName) && isOverlapping(k, fp) {
				dup = true
				break
			}
		}
		if dup {
			duplicates[fp.Path] = true
			continue
		}
		kept = append(kept, fp)
	}
	return duplicates
}

// isOverlapping checks if >80% of b's timestamps appear in a within the dedupWindow.
func isOverlapping(a, b fileFingerprint) bool {
	if len(b.Timestamps) == 0 {
		return false
	}

	matches := 0
	for _, bt := range b.Timestamps {
		for _, at := range a.Timestamps {
			diff := bt.Sub(at)
			if diff < 0 {
				diff = -diff
			}
			if diff <= dedupWindow {
				matches++
				break
			}
		}
	}

	return float64(matches)/float64(len(b.Timestamps)) >= overlapThreshold
}
