package discovery

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Listing is a parsed sitemap document. Exactly one of Locs or Children is
// populated, depending on whether the document was a urlset or an index.
type Listing struct {
	Locs     []string
	Children []string
}

func (l Listing) IsIndex() bool { return len(l.Children) > 0 }

type xmlURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type xmlSitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// ParseSitemap decodes a sitemap 0.9 urlset or sitemapindex document.
func ParseSitemap(body []byte) (Listing, error) {
	root, err := rootElement(body)
	if err != nil {
		return Listing{}, fmt.Errorf("parse sitemap: %w", err)
	}

	switch root {
	case "urlset":
		var set xmlURLSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return Listing{}, fmt.Errorf("parse sitemap: %w", err)
		}
		locs := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				locs = append(locs, loc)
			}
		}
		return Listing{Locs: locs}, nil

	case "sitemapindex":
		var index xmlSitemapIndex
		if err := xml.Unmarshal(body, &index); err != nil {
			return Listing{}, fmt.Errorf("parse sitemap index: %w", err)
		}
		children := make([]string, 0, len(index.Sitemaps))
		for _, s := range index.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return Listing{Children: children}, nil

	default:
		return Listing{}, fmt.Errorf("parse sitemap: unexpected root element <%s>", root)
	}
}

func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("empty document")
			}
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
