// Package discovery enumerates candidate novel and genre URLs from a
// site's sitemap. Discovery is best effort: failures are reported in the
// result and never returned as errors.
package discovery

import (
	"context"
	"net/url"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Getter downloads a raw document.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Matcher decides whether a sitemap location is a candidate.
type Matcher func(loc string) bool

// Contains matches locations containing sub anywhere.
func Contains(sub string) Matcher {
	return func(loc string) bool { return strings.Contains(loc, sub) }
}

// PathPrefix matches locations whose URL path starts with prefix.
func PathPrefix(prefix string) Matcher {
	return func(loc string) bool {
		u, err := url.Parse(loc)
		if err != nil {
			return false
		}
		return strings.HasPrefix(u.Path, prefix)
	}
}

// Result is the outcome of one discovery pass. On failure URLs is empty
// and Err says why.
type Result struct {
	URLs           []string
	Scanned        int
	FailedChildren int
	Err            error
}

type Discoverer struct {
	src Getter
	log *zap.Logger
}

func New(src Getter, log *zap.Logger) *Discoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discoverer{src: src, log: log}
}

// Discover fetches sitemapURL once and returns the distinct locations that
// match. A sitemap index is expanded one level; a child that cannot be read
// is logged and skipped.
func (d *Discoverer) Discover(ctx context.Context, sitemapURL string, match Matcher) Result {
	listing, err := d.load(ctx, sitemapURL)
	if err != nil {
		d.log.Warn("sitemap discovery failed", zap.String("url", sitemapURL), zap.Error(err))
		return Result{Err: err}
	}

	var res Result
	locs := listing.Locs
	for _, child := range listing.Children {
		sub, err := d.load(ctx, child)
		if err == nil && sub.IsIndex() {
			d.log.Warn("nested sitemap index not expanded", zap.String("url", child))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Result{Err: ctx.Err()}
			}
			d.log.Warn("child sitemap skipped", zap.String("url", child), zap.Error(err))
			res.FailedChildren++
			continue
		}
		locs = append(locs, sub.Locs...)
	}

	seen := make(map[string]struct{}, len(locs))
	for _, loc := range locs {
		res.Scanned++
		if match != nil && !match(loc) {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		res.URLs = append(res.URLs, loc)
	}
	sort.Strings(res.URLs)

	d.log.Info("sitemap discovery done",
		zap.String("url", sitemapURL),
		zap.Int("scanned", res.Scanned),
		zap.Int("matched", len(res.URLs)),
		zap.Int("failed_children", res.FailedChildren))
	return res
}

func (d *Discoverer) load(ctx context.Context, u string) (Listing, error) {
	body, err := d.src.Get(ctx, u)
	if err != nil {
		return Listing{}, err
	}
	return ParseSitemap(body)
}

// GenreNames turns genre taxonomy URLs into display names, taking the last
// path segment: ".../nov-love-genres/martial-arts" becomes "Martial Arts".
func GenreNames(urls []string) []string {
	title := cases.Title(language.English)
	seen := make(map[string]struct{}, len(urls))
	names := make([]string, 0, len(urls))

	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		slug := path.Base(strings.TrimRight(u.Path, "/"))
		if slug == "" || slug == "." || slug == "/" {
			continue
		}
		name := title.String(strings.Join(strings.FieldsFunc(slug, isSlugSeparator), " "))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

func isSlugSeparator(r rune) bool { return r == '-' || r == '_' || r == '+' }
