package events

import "time"

// Event types.
const (
	RunStarted     = "run.started"
	NovelSucceeded = "novel.succeeded"
	NovelFailed    = "novel.failed"
	RunFinished    = "run.finished"
)

// Event is one line of the run feed.
type Event struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	NovelID     int64     `json:"novel_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	NewChapters int       `json:"new_chapters,omitempty"`
	Error       string    `json:"error,omitempty"`
	Status      string    `json:"status,omitempty"`
	Processed   int       `json:"processed,omitempty"`
	Failed      int       `json:"failed,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}
