package models

import "time"

// StubTitle is the placeholder title of a novel that has been discovered
// but not yet scraped.
const StubTitle = "Unknown"

// Novel is the persisted form of a novel. SourceURL is the natural key.
//
// CurrentLastChapterNumber is always recomputed from the chapters table;
// LatestChapterNumber is the highest number the source site reported on
// the last scrape and may run ahead of it.
type Novel struct {
	ID                       int64      `db:"id" json:"id"`
	Title                    string     `db:"title" json:"title"`
	Author                   string     `db:"author" json:"author,omitempty"`
	Description              string     `db:"description" json:"description,omitempty"`
	CoverImageURL            string     `db:"cover_image_url" json:"cover_image_url,omitempty"`
	Language                 string     `db:"language" json:"language,omitempty"`
	IsCompleted              bool       `db:"is_completed" json:"is_completed"`
	AvgRating                float64    `db:"avg_rating" json:"avg_rating"`
	SourceURL                string     `db:"source_url" json:"source_url"`
	SourceWebsiteID          int64      `db:"source_website_id" json:"source_website_id"`
	LastScrapedAt            *time.Time `db:"last_scraped_at" json:"last_scraped_at,omitempty"`
	LatestChapterNumber      int        `db:"latest_chapter_number" json:"latest_chapter_number"`
	CurrentLastChapterNumber int        `db:"current_last_chapter_number" json:"current_last_chapter_number"`
}

// IsStub reports whether the novel has never been scraped for details.
func (n Novel) IsStub() bool {
	return n.LastScrapedAt == nil
}

// NovelDetails is the typed result of a detail-page scrape. Empty strings
// and nil pointers mean the field could not be read from the page.
type NovelDetails struct {
	Title         string
	Author        string
	Description   string
	CoverImageURL string
	Language      string
	Status        *string  // raw status text, e.g. "Completed" or "Ongoing"
	AvgRating     *float64 // nil when missing or unparseable
	Genres        ScrapedGenres
}

// NovelWithGenres is the read model served by the API.
type NovelWithGenres struct {
	Novel
	Genres  []Genre  `json:"genres"`
	Website *Website `json:"website,omitempty"`
}
