package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"novelhub/internal/discovery"
	"novelhub/internal/fetcher"
	"novelhub/pkg/models"
)

const (
	wuxiaworldName      = "Wuxiaworld"
	wuxiaworldBaseURL   = "https://www.wuxiaworld.com"
	wuxiaworldNovelPath = "/novel/"
	wuxiaworldListPath  = "/novels"
)

const wuxiaworldLoadMore = `() => {
	window.scrollTo(0, document.body.scrollHeight);
	document.querySelector('button[data-testid="load-more-button"]')?.click();
}`

var wuxiaworldListSchema = fetcher.Schema{
	Name:         "NovelList",
	BaseSelector: "div.flex.justify-start",
	WaitFor:      "div.flex.justify-start",
	Fields: []fetcher.Field{
		{Name: "link", Selector: "a", Type: fetcher.FieldAttribute, Attribute: "href"},
	},
}

var wuxiaworldDetailsSchema = fetcher.Schema{
	Name:    "NovelDetails",
	WaitFor: "head",
	Fields: []fetcher.Field{
		{Name: "title", Selector: "meta[property='og:title']", Type: fetcher.FieldAttribute, Attribute: "content"},
		{Name: "description", Selector: "meta[property='og:description']", Type: fetcher.FieldAttribute, Attribute: "content"},
		{Name: "cover_image_url", Selector: "meta[property='og:image']", Type: fetcher.FieldAttribute, Attribute: "content"},
	},
}

// Wuxiaworld lists novels from wuxiaworld.com's catalogue, which only
// grows through its "load more" button. Chapters are not scraped.
type Wuxiaworld struct {
	fetch fetcher.Fetcher
	log   *zap.Logger
	// Paging controls the load-more rounds when the fetcher renders pages.
	Paging fetcher.Paging
}

func NewWuxiaworld(f fetcher.Fetcher, log *zap.Logger) *Wuxiaworld {
	if log == nil {
		log = zap.NewNop()
	}
	return &Wuxiaworld{
		fetch: f,
		log:   log,
		Paging: fetcher.Paging{
			Script:    wuxiaworldLoadMore,
			Pause:     3 * time.Second,
			MaxRounds: 200,
		},
	}
}

func (s *Wuxiaworld) Name() string    { return wuxiaworldName }
func (s *Wuxiaworld) BaseURL() string { return wuxiaworldBaseURL }
func (s *Wuxiaworld) Host() string    { return "wuxiaworld.com" }

func (s *Wuxiaworld) NovelURLs() discovery.Matcher {
	return discovery.PathPrefix(wuxiaworldNovelPath)
}

// GenreURLs matches nothing; the site has no genre pages in its sitemap.
func (s *Wuxiaworld) GenreURLs() discovery.Matcher {
	return func(string) bool { return false }
}

// ListNovelURLs walks the catalogue and returns each novel url once, in
// listing order. Without a paginating fetcher only the first page is read.
func (s *Wuxiaworld) ListNovelURLs(ctx context.Context) ([]string, error) {
	listURL := wuxiaworldBaseURL + wuxiaworldListPath
	match := s.NovelURLs()

	var (
		urls []string
		seen = make(map[string]struct{})
	)
	collect := func(p *fetcher.Page) bool {
		for _, rec := range p.Records {
			for _, link := range rec.All("link") {
				if !match(link) {
					continue
				}
				if _, ok := seen[link]; ok {
					continue
				}
				seen[link] = struct{}{}
				urls = append(urls, link)
			}
		}
		s.log.Debug("listing round", zap.Int("records", len(p.Records)), zap.Int("novels", len(urls)))
		return ctx.Err() == nil
	}

	if pg, ok := s.fetch.(fetcher.Paginator); ok {
		if err := pg.FetchPages(ctx, listURL, wuxiaworldListSchema, s.Paging, collect); err != nil {
			if len(urls) == 0 {
				return nil, fmt.Errorf("list novels: %w", err)
			}
			s.log.Warn("listing ended early", zap.Int("novels", len(urls)), zap.Error(err))
		}
		return urls, nil
	}

	page, err := s.fetch.Fetch(ctx, listURL, wuxiaworldListSchema)
	if err != nil {
		return nil, fmt.Errorf("list novels: %w", err)
	}
	collect(page)
	return urls, nil
}

func (s *Wuxiaworld) ScrapeDetails(ctx context.Context, novelURL string) (*models.NovelDetails, error) {
	page, err := s.fetch.Fetch(ctx, novelURL, wuxiaworldDetailsSchema)
	if err != nil {
		return nil, fmt.Errorf("scrape details: %w", err)
	}
	if len(page.Records) == 0 {
		return nil, fmt.Errorf("scrape details %s: %w", novelURL, ErrNoDetails)
	}

	rec := page.Records[0]
	d := &models.NovelDetails{
		Title:         rec.First("title"),
		Description:   rec.First("description"),
		CoverImageURL: rec.First("cover_image_url"),
	}
	if d.Title == "" && d.Description == "" {
		return nil, fmt.Errorf("scrape details %s: %w", novelURL, ErrNoDetails)
	}
	return d, nil
}

func (s *Wuxiaworld) ScrapeChapterList(_ context.Context, novelURL string) ([]models.ChapterEntry, error) {
	return nil, fmt.Errorf("scrape chapter list %s: %w", novelURL, ErrUnsupported)
}

func (s *Wuxiaworld) FetchChapterContent(_ context.Context, chapterURL string) (string, error) {
	return "", fmt.Errorf("fetch chapter content %s: %w", chapterURL, ErrUnsupported)
}
