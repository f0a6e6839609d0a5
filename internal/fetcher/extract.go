package fetcher

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// urlAttributes are resolved against the page URL when extracted.
var urlAttributes = map[string]bool{
	"href":     true,
	"src":      true,
	"data-src": true,
}

// Extract applies schema to an HTML document.
func Extract(body []byte, pageURL string, schema Schema) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, _ := url.Parse(pageURL)

	var roots *goquery.Selection
	if schema.BaseSelector == "" {
		roots = doc.Selection
	} else {
		roots = doc.Find(schema.BaseSelector)
	}

	records := make([]Record, 0, roots.Length())
	roots.Each(func(_ int, root *goquery.Selection) {
		rec := Record{}
		for _, f := range schema.Fields {
			root.Find(f.Selector).Each(func(_ int, s *goquery.Selection) {
				rec[f.Name] = append(rec[f.Name], fieldValue(s, f, base))
			})
		}
		records = append(records, rec)
	})
	return records, nil
}

func fieldValue(s *goquery.Selection, f Field, base *url.URL) string {
	if f.Type != FieldAttribute {
		return CleanText(s.Text())
	}

	v := strings.TrimSpace(s.AttrOr(f.Attribute, ""))
	if v == "" || base == nil || !urlAttributes[f.Attribute] {
		return v
	}
	ref, err := url.Parse(v)
	if err != nil {
		return v
	}
	return base.ResolveReference(ref).String()
}

// CleanText trims and collapses runs of whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
