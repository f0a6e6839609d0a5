// Package fetcher downloads pages and extracts fields from them using
// declarative CSS schemas. Retry and timeout policy live here; callers
// only see success or an error wrapping ErrFetch.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"novelhub/pkg/utils"
)

// ErrFetch marks every failure to obtain a page, timeouts included.
var ErrFetch = errors.New("fetch failed")

type FieldType string

const (
	FieldText      FieldType = "text"
	FieldAttribute FieldType = "attribute"
)

// Field maps one CSS selector to a named value.
type Field struct {
	Name      string
	Selector  string
	Type      FieldType
	Attribute string
}

// Schema describes what to extract from a page. Each element matching
// BaseSelector yields one Record; an empty BaseSelector means the whole
// document. WaitFor and Delay only matter for rendered pages.
type Schema struct {
	Name         string
	BaseSelector string
	Fields       []Field
	WaitFor      string
	Delay        time.Duration
}

// Record holds every value a field matched, in document order. A field
// that matched nothing has no key.
type Record map[string][]string

func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

func (r Record) First(name string) string {
	if v := r[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (r Record) All(name string) []string { return r[name] }

// Page is a fetched document with the records extracted from it. Body is
// kept so sources can run supplementary parses over the raw markup.
type Page struct {
	URL     string
	Body    []byte
	Records []Record
}

type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Fetch(ctx context.Context, url string, schema Schema) (*Page, error)
	Close() error
}

// Paging drives a listing that grows in place, such as a "load more"
// button. Script runs in the page between rounds.
type Paging struct {
	Script    string
	Pause     time.Duration
	MaxRounds int
}

// Paginator is implemented by fetchers that can keep one page open across
// rounds. yield sees the whole page after each round and returns false to
// stop. Rounds also stop once a round adds no records.
type Paginator interface {
	FetchPages(ctx context.Context, url string, schema Schema, paging Paging, yield func(*Page) bool) error
}

// New builds the fetcher selected by cfg.Mode.
func New(cfg utils.FetcherConfig, log *zap.Logger) (Fetcher, error) {
	switch cfg.Mode {
	case "", "http":
		return NewHTTP(cfg, log), nil
	case "browser":
		return NewBrowser(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown fetcher mode %q", cfg.Mode)
	}
}

func fetchPage(ctx context.Context, get func(context.Context) ([]byte, error), url string, schema Schema) (*Page, error) {
	body, err := get(ctx)
	if err != nil {
		return nil, err
	}
	records, err := Extract(body, url, schema)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s from %s: %v", ErrFetch, schema.Name, url, err)
	}
	return &Page{URL: url, Body: body, Records: records}, nil
}
