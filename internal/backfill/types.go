package backfill

import "time"

// FileSummary is the outcome of importing one export file.
type FileSummary struct {
	Path         string
	ChatName     string
	Date         string // date of the newest message, YYYY-MM-DD
	Eligible     int
	TasksCreated int
	NoNew        bool
	Err          string
}

// Report summarizes a whole backfill run.
type Report struct {
	Discovered   int
	Skipped      int // already processed in an earlier run
	Duplicates   int
	Imported     int
	Failed       int
	TasksCreated int
	Files        []FileSummary
	StartedAt    time.Time
	FinishedAt   time.Time
}
