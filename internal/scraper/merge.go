package scraper

import (
	"strings"
	"time"

	"novelhub/pkg/models"
)

// ApplyDetails merges freshly scraped details into the stored novel and
// returns the result. The rules:
//
//   - an empty scraped text field keeps the stored value
//   - a rating that could not be parsed keeps the stored value
//   - a status, when present, decides is_completed ("completed", any case)
//   - last_scraped_at is set to now
//
// Identity and counters are never touched.
func ApplyDetails(base models.Novel, d *models.NovelDetails, now time.Time) models.Novel {
	if d == nil {
		return base
	}

	base.Title = pick(d.Title, base.Title)
	base.Author = pick(d.Author, base.Author)
	base.Description = pick(d.Description, base.Description)
	base.CoverImageURL = pick(d.CoverImageURL, base.CoverImageURL)
	base.Language = pick(d.Language, base.Language)

	if d.AvgRating != nil {
		base.AvgRating = *d.AvgRating
	}
	if d.Status != nil {
		base.IsCompleted = strings.EqualFold(strings.TrimSpace(*d.Status), "completed")
	}

	scraped := now.UTC()
	base.LastScrapedAt = &scraped
	return base
}

func pick(incoming, current string) string {
	if v := strings.TrimSpace(incoming); v != "" {
		return v
	}
	return current
}
