package scraper

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"novelhub/internal/fetcher"
	"novelhub/pkg/models"
)

// GenreStrategy tries to read a page's genre list. ok is false when the
// strategy found nothing it recognises; a true ok with no names is a
// confirmed empty list.
type GenreStrategy func(p *fetcher.Page) (names []string, ok bool)

// ExtractGenres runs strategies in order and keeps the first answer. When
// none answers the genres are absent, which is different from empty.
func ExtractGenres(p *fetcher.Page, strategies ...GenreStrategy) models.ScrapedGenres {
	for _, s := range strategies {
		if names, ok := s(p); ok {
			return models.GenresFound(names...)
		}
	}
	return models.ScrapedGenres{}
}

// GenresFromMetaList reads `ul.info.info-meta li` entries from the raw
// markup and returns the anchor texts of the one headed "Genre:".
func GenresFromMetaList(p *fetcher.Page) ([]string, bool) {
	if p == nil || len(p.Body) == 0 {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, false
	}

	var (
		names []string
		found bool
	)
	doc.Find("ul.info.info-meta li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if !strings.EqualFold(fetcher.CleanText(li.Find("h3").First().Text()), "genre:") {
			return true
		}
		found = true
		li.Find("a").Each(func(_ int, a *goquery.Selection) {
			if name := fetcher.CleanText(a.Text()); name != "" {
				names = append(names, name)
			}
		})
		return false
	})
	return names, found
}

// GenresFromField reads a schema field holding text like
// "Genre: Action, Fantasy".
func GenresFromField(field string) GenreStrategy {
	return func(p *fetcher.Page) ([]string, bool) {
		if p == nil || len(p.Records) == 0 {
			return nil, false
		}
		for _, v := range p.Records[0].All(field) {
			rest, ok := cutPrefixFold(v, "genre:")
			if !ok {
				continue
			}
			var names []string
			for _, part := range strings.Split(rest, ",") {
				if name := fetcher.CleanText(part); name != "" {
					names = append(names, name)
				}
			}
			if len(names) > 0 {
				return names, true
			}
		}
		return nil, false
	}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
