package models

import "time"

// Chapter is a stored chapter. URL is the natural key; Number is nil when
// the source text carried no digits.
type Chapter struct {
	ID            int64      `db:"id" json:"id"`
	NovelID       int64      `db:"novel_id" json:"novel_id"`
	Title         string     `db:"title" json:"title"`
	Number        *int       `db:"chapter_number" json:"chapter_number,omitempty"`
	URL           string     `db:"url" json:"url"`
	Content       string     `db:"content" json:"content,omitempty"`
	PublishedDate *time.Time `db:"published_date" json:"published_date,omitempty"`
}

// ChapterEntry is one row of a scraped chapter list.
type ChapterEntry struct {
	Title         string
	URL           string
	NumberToken   string
	PublishedDate *time.Time
}
