package models

import "time"

// NovelInstance is an alternate edition or translation of a novel,
// identified by its own URL.
type NovelInstance struct {
	ID          int64     `db:"id" json:"id"`
	NovelID     int64     `db:"novel_id" json:"novel_id"`
	URL         string    `db:"url" json:"url"`
	VersionName string    `db:"version_name" json:"version_name,omitempty"`
	Status      string    `db:"status" json:"status,omitempty"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}
