// Package scraper holds the per-site adapters that turn fetched pages into
// typed novel details, chapter lists and chapter text. Everything past this
// package works on models types only.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"novelhub/internal/discovery"
	"novelhub/pkg/models"
)

var (
	// ErrNoDetails means the page loaded but carried no recognisable novel.
	ErrNoDetails = errors.New("no novel details on page")
	// ErrNoContent means a chapter page had no chapter text.
	ErrNoContent = errors.New("no chapter content on page")
	// ErrNoSource means no registered source serves the URL's host.
	ErrNoSource = errors.New("no source for url")
	// ErrUnsupported means a source cannot perform the operation at all.
	ErrUnsupported = errors.New("not supported by source")
)

// Source is implemented by each supported site.
type Source interface {
	// Name is the website's identity in the store.
	Name() string
	BaseURL() string
	Host() string

	NovelURLs() discovery.Matcher
	GenreURLs() discovery.Matcher

	ScrapeDetails(ctx context.Context, novelURL string) (*models.NovelDetails, error)
	ScrapeChapterList(ctx context.Context, novelURL string) ([]models.ChapterEntry, error)
	FetchChapterContent(ctx context.Context, chapterURL string) (string, error)
}

// Lister is implemented by sources that enumerate their novels from a
// listing page instead of a sitemap.
type Lister interface {
	ListNovelURLs(ctx context.Context) ([]string, error)
}

// Registry picks the source for a URL by host.
type Registry struct {
	Sources []Source
}

func NewRegistry(sources ...Source) *Registry {
	return &Registry{Sources: sources}
}

func (r *Registry) For(rawURL string) (Source, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoSource, rawURL, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, s := range r.Sources {
		if host == s.Host() {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSource, rawURL)
}

// ByName returns the source whose website is called name.
func (r *Registry) ByName(name string) (Source, error) {
	for _, s := range r.Sources {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: website %q", ErrNoSource, name)
}

// Default returns the first registered source.
func (r *Registry) Default() Source {
	if len(r.Sources) == 0 {
		return nil
	}
	return r.Sources[0]
}
