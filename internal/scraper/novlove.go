package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"novelhub/internal/discovery"
	"novelhub/internal/fetcher"
	"novelhub/pkg/models"
)

const (
	novLoveName       = "NovLove"
	novLoveBaseURL    = "https://novlove.com"
	novLoveNovelPath  = "/novel/"
	novLoveGenrePath  = "/nov-love-genres/"
	novLoveChapterTab = "#tab-chapters-title"
)

var novLoveDetailsSchema = fetcher.Schema{
	Name:    "NovelDetails",
	WaitFor: "div.col-novel-main",
	Fields: []fetcher.Field{
		{Name: "title", Selector: "div.col-novel-main h3.title", Type: fetcher.FieldText},
		{Name: "author", Selector: "span[itemprop='author'] meta[itemprop='name']", Type: fetcher.FieldAttribute, Attribute: "content"},
		{Name: "description", Selector: "div.desc-text", Type: fetcher.FieldText},
		{Name: "cover_image_url", Selector: "meta[itemprop='image']", Type: fetcher.FieldAttribute, Attribute: "content"},
		{Name: "status", Selector: "meta[property='og:novel:status']", Type: fetcher.FieldAttribute, Attribute: "content"},
		{Name: "avg_rating", Selector: "input#rateVal", Type: fetcher.FieldAttribute, Attribute: "value"},
		{Name: "genres", Selector: "ul.info.info-meta li", Type: fetcher.FieldText},
	},
}

var novLoveChapterContentSchema = fetcher.Schema{
	Name:    "ChapterContent",
	WaitFor: "#chr-content",
	Fields: []fetcher.Field{
		{Name: "paragraphs", Selector: "#chr-content p", Type: fetcher.FieldText},
		{Name: "content", Selector: "#chr-content", Type: fetcher.FieldText},
	},
}

// NovLove scrapes novlove.com.
type NovLove struct {
	fetch fetcher.Fetcher
	log   *zap.Logger
	// ChapterListDelay gives the chapter tab's script time to fill the list
	// when pages are rendered in a browser.
	ChapterListDelay time.Duration
	genres           []GenreStrategy
}

func NewNovLove(f fetcher.Fetcher, log *zap.Logger) *NovLove {
	if log == nil {
		log = zap.NewNop()
	}
	return &NovLove{
		fetch:            f,
		log:              log,
		ChapterListDelay: 10 * time.Second,
		genres: []GenreStrategy{
			GenresFromMetaList,
			GenresFromField("genres"),
		},
	}
}

func (s *NovLove) Name() string    { return novLoveName }
func (s *NovLove) BaseURL() string { return novLoveBaseURL }
func (s *NovLove) Host() string    { return "novlove.com" }

func (s *NovLove) NovelURLs() discovery.Matcher { return discovery.PathPrefix(novLoveNovelPath) }
func (s *NovLove) GenreURLs() discovery.Matcher { return discovery.PathPrefix(novLoveGenrePath) }

func (s *NovLove) ScrapeDetails(ctx context.Context, novelURL string) (*models.NovelDetails, error) {
	page, err := s.fetch.Fetch(ctx, novelURL, novLoveDetailsSchema)
	if err != nil {
		return nil, fmt.Errorf("scrape details: %w", err)
	}
	if len(page.Records) == 0 {
		return nil, fmt.Errorf("scrape details %s: %w", novelURL, ErrNoDetails)
	}

	rec := page.Records[0]
	d := &models.NovelDetails{
		Title:         rec.First("title"),
		Author:        rec.First("author"),
		Description:   rec.First("description"),
		CoverImageURL: rec.First("cover_image_url"),
		Genres:        ExtractGenres(page, s.genres...),
	}
	if d.Title == "" && d.Author == "" && d.Description == "" {
		return nil, fmt.Errorf("scrape details %s: %w", novelURL, ErrNoDetails)
	}
	if status := normalizeStatus(rec.First("status")); status != "" {
		d.Status = &status
	}
	if rating, err := strconv.ParseFloat(strings.TrimSpace(rec.First("avg_rating")), 64); err == nil {
		d.AvgRating = &rating
	}

	s.log.Debug("scraped details",
		zap.String("url", novelURL),
		zap.String("title", d.Title),
		zap.Bool("genres_found", d.Genres.Found),
		zap.Int("genres", len(d.Genres.Names)))
	return d, nil
}

func (s *NovLove) ScrapeChapterList(ctx context.Context, novelURL string) ([]models.ChapterEntry, error) {
	schema := fetcher.Schema{
		Name:         "Chapters",
		BaseSelector: "#tab-chapters ul.list-chapter > li",
		WaitFor:      "body",
		Delay:        s.ChapterListDelay,
		Fields: []fetcher.Field{
			{Name: "title", Selector: "a", Type: fetcher.FieldText},
			{Name: "url", Selector: "a", Type: fetcher.FieldAttribute, Attribute: "href"},
		},
	}

	listURL := strings.TrimSuffix(novelURL, novLoveChapterTab) + novLoveChapterTab
	page, err := s.fetch.Fetch(ctx, listURL, schema)
	if err != nil {
		return nil, fmt.Errorf("scrape chapter list: %w", err)
	}

	entries := make([]models.ChapterEntry, 0, len(page.Records))
	for _, rec := range page.Records {
		title := rec.First("title")
		entries = append(entries, models.ChapterEntry{
			Title:       title,
			URL:         rec.First("url"),
			NumberToken: ChapterToken(title),
		})
	}
	return entries, nil
}

func (s *NovLove) FetchChapterContent(ctx context.Context, chapterURL string) (string, error) {
	page, err := s.fetch.Fetch(ctx, chapterURL, novLoveChapterContentSchema)
	if err != nil {
		return "", fmt.Errorf("fetch chapter content: %w", err)
	}
	if len(page.Records) == 0 {
		return "", fmt.Errorf("fetch chapter content %s: %w", chapterURL, ErrNoContent)
	}

	rec := page.Records[0]
	if paras := rec.All("paragraphs"); len(paras) > 0 {
		kept := paras[:0:0]
		for _, p := range paras {
			if p != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			return strings.Join(kept, "\n\n"), nil
		}
	}
	if text := rec.First("content"); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("fetch chapter content %s: %w", chapterURL, ErrNoContent)
}

// ChapterToken isolates the number part of a chapter link text. For
// "Chapter 12: 300 Spartans" it returns "12:", keeping digits of the title
// out of the number. Text without "Chapter" is returned whole.
func ChapterToken(title string) string {
	lower := strings.ToLower(title)
	i := strings.Index(lower, "chapter")
	if i < 0 {
		return strings.TrimSpace(title)
	}
	fields := strings.Fields(title[i+len("chapter"):])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "completed", "complete", "finished":
		return "completed"
	case "ongoing":
		return "ongoing"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}
