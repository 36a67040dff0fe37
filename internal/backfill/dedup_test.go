package backfill

import (
	"testing"
	"time"

	"github.com/MikeSquared-Agency/taskwire/internal/transcript"
)

func stamps(base time.Time, offsets ...time.Duration) []time.Time {
	out := make([]time.Time, len(offsets))
	for i, o := range offsets {
		out[i] = base.Add(o)
	}
	return out
}

func TestFindDuplicates_ZipAndTextOfSameExport(t *testing.T) {
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)
	ts := stamps(base, 0, time.Minute, 2*time.Minute, 3*time.Minute)

	dups := FindDuplicates([]fileFingerprint{
		{Path: "b/team.zip", ChatName: "Team", Timestamps: ts},
		{Path: "a/team.txt", ChatName: "Team", Timestamps: ts},
	})
	if len(dups) != 1 || !dups["b/team.zip"] {
		t.Errorf("expected only b/team.zip marked, got %v", dups)
	}
}

func TestFindDuplicates_OlderPartialExport(t *testing.T) {
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)

	full := fileFingerprint{Path: "team-march.txt", ChatName: "Team",
		Timestamps: stamps(base, 0, time.Hour, 2*time.Hour, 3*time.Hour, 4*time.Hour)}
	partial := fileFingerprint{Path: "team-feb.txt", ChatName: "Team",
		Timestamps: stamps(base, 0, time.Hour)}

	dups := FindDuplicates([]fileFingerprint{partial, full})
	if !dups["team-feb.txt"] || dups["team-march.txt"] {
		t.Errorf("expected the partial export to be the duplicate, got %v", dups)
	}
}

func TestFindDuplicates_DifferentChatsNeverMatch(t *testing.T) {
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)
	ts := stamps(base, 0, time.Second)

	dups := FindDuplicates([]fileFingerprint{
		{Path: "team.txt", ChatName: "Team", Timestamps: ts},
		{Path: "ops.txt", ChatName: "Ops", Timestamps: ts},
	})
	if len(dups) != 0 {
		t.Errorf("different chats should not be duplicates: %v", dups)
	}
}

func TestFindDuplicates_PartialOverlapBelowThreshold(t *testing.T) {
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)

	a := fileFingerprint{Path: "a.txt", ChatName: "Team",
		Timestamps: stamps(base, 0, time.Second, 5*time.Hour, 6*time.Hour, 7*time.Hour, 8*time.Hour)}
	// Only 2 out of 5 match: 40% < 80% threshold.
	b := fileFingerprint{Path: "b.txt", ChatName: "Team",
		Timestamps: stamps(base, 0, time.Second, time.Hour, 2*time.Hour, 3*time.Hour)}

	if dups := FindDuplicates([]fileFingerprint{a, b}); len(dups) != 0 {
		t.Errorf("40%% overlap should not be a duplicate: %v", dups)
	}
}

func TestFindDuplicates_WithinTimestampWindow(t *testing.T) {
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)

	a := fileFingerprint{Path: "a.txt", ChatName: "Team",
		Timestamps: stamps(base, 0, 10*time.Second, 20*time.Second)}
	b := fileFingerprint{Path: "b.txt", ChatName: "team",
		Timestamps: stamps(base, 500*time.Millisecond, 10*time.Second+800*time.Millisecond)}

	if dups := FindDuplicates([]fileFingerprint{a, b}); !dups["b.txt"] {
		t.Error("timestamps within 1s window should be detected as duplicate")
	}
}

func TestFindDuplicates_EmptyExportsKept(t *testing.T) {
	dups := FindDuplicates([]fileFingerprint{
		{Path: "empty1.txt", ChatName: "Team"},
		{Path: "empty2.txt", ChatName: "Team"},
	})
	if len(dups) != 0 {
		t.Errorf("exports without messages are never duplicates: %v", dups)
	}
}

func TestBuildFingerprint(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tr := &transcript.Transcript{
		ChatName: "Team",
		Messages: []transcript.Message{
			{Timestamp: at, Sender: "A", Text: "one"},
			{Sender: "B", Text: "no time"},
			{Timestamp: at.Add(time.Minute), Sender: "C", Text: "two"},
		},
	}

	fp := BuildFingerprint("team.txt", tr)
	if fp.Path != "team.txt" || fp.ChatName != "Team" {
		t.Errorf("fingerprint = %+v", fp)
	}
	if len(fp.Timestamps) != 2 {
		t.Errorf("expected zero timestamps skipped, got %d", len(fp.Timestamps))
	}
}
