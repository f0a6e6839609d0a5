package models

import "time"

// Run statuses.
const (
	RunRunning     = "running"
	RunCompleted   = "completed"
	RunInterrupted = "interrupted"
)

// ScrapeRun is the bookkeeping row of one batch invocation. LastNovelID is
// the checkpoint a resumed run continues after.
type ScrapeRun struct {
	ID          string     `db:"id" json:"id"`
	Mode        string     `db:"mode" json:"mode"`
	NovelURL    string     `db:"novel_url" json:"novel_url,omitempty"`
	StartID     int64      `db:"start_id" json:"start_id,omitempty"`
	EndID       int64      `db:"end_id" json:"end_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	Processed   int        `db:"processed" json:"processed"`
	Failed      int        `db:"failed" json:"failed"`
	NewChapters int        `db:"new_chapters" json:"new_chapters"`
	LastNovelID int64      `db:"last_novel_id" json:"last_novel_id"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
