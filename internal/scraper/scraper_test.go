package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/fetcher"
	"novelhub/pkg/models"
)

// pageFetcher serves canned HTML and runs the real extractor over it.
type pageFetcher struct {
	pages map[string]string
	urls  []string
}

func (f *pageFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, fetcher.ErrFetch
	}
	return []byte(body), nil
}

func (f *pageFetcher) Fetch(ctx context.Context, url string, schema fetcher.Schema) (*fetcher.Page, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	recs, err := fetcher.Extract(body, url, schema)
	if err != nil {
		return nil, err
	}
	return &fetcher.Page{URL: url, Body: body, Records: recs}, nil
}

func (f *pageFetcher) Close() error { return nil }

const novelURL = "https://novlove.com/novel/a-tale"

const detailPage = `<html><head>
<meta itemprop="image" content="https://novlove.com/media/a.jpg">
<meta property="og:novel:status" content="Completed">
</head><body>
<div class="col-novel-main"><h3 class="title">A Tale</h3></div>
<span itemprop="author"><meta itemprop="name" content="Some Author"></span>
<div class="desc-text"><p>Once upon</p> <p>a time.</p></div>
<input id="rateVal" value="4.3">
<ul class="info info-meta">
  <li><h3>Author:</h3><a href="/a/x">Some Author</a></li>
  <li><h3>Genre:</h3><a href="/g/action">Action</a>, <a href="/g/fantasy">Fantasy</a></li>
</ul>
</body></html>`

const chapterListPage = `<html><body><div id="tab-chapters"><ul class="list-chapter">
<li><a href="/novel/a-tale/chapter-1">Chapter 1: Start</a></li>
<li><a href="/novel/a-tale/chapter-2">Chapter 2: 300 Spartans</a></li>
<li><a href="/novel/a-tale/side">Side Story</a></li>
</ul></div></body></html>`

func TestNovLove_ScrapeDetails(t *testing.T) {
	src := NewNovLove(&pageFetcher{pages: map[string]string{novelURL: detailPage}}, nil)

	d, err := src.ScrapeDetails(context.Background(), novelURL)
	require.NoError(t, err)

	assert.Equal(t, "A Tale", d.Title)
	assert.Equal(t, "Some Author", d.Author)
	assert.Equal(t, "Once upon a time.", d.Description)
	assert.Equal(t, "https://novlove.com/media/a.jpg", d.CoverImageURL)
	require.NotNil(t, d.Status)
	assert.Equal(t, "completed", *d.Status)
	require.NotNil(t, d.AvgRating)
	assert.InDelta(t, 4.3, *d.AvgRating, 0.0001)
	assert.Equal(t, models.GenresFound("Action", "Fantasy"), d.Genres)
}

func TestNovLove_ScrapeDetailsEmptyPage(t *testing.T) {
	src := NewNovLove(&pageFetcher{pages: map[string]string{novelURL: `<html><body>gone</body></html>`}}, nil)

	_, err := src.ScrapeDetails(context.Background(), novelURL)
	assert.ErrorIs(t, err, ErrNoDetails)
}

func TestNovLove_ScrapeDetailsFetchError(t *testing.T) {
	src := NewNovLove(&pageFetcher{}, nil)

	_, err := src.ScrapeDetails(context.Background(), novelURL)
	assert.ErrorIs(t, err, fetcher.ErrFetch)
}

func TestNovLove_ScrapeChapterList(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{novelURL + "#tab-chapters-title": chapterListPage}}
	src := NewNovLove(f, nil)
	src.ChapterListDelay = 0

	entries, err := src.ScrapeChapterList(context.Background(), novelURL)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, models.ChapterEntry{
		Title:       "Chapter 2: 300 Spartans",
		URL:         "https://novlove.com/novel/a-tale/chapter-2",
		NumberToken: "2:",
	}, entries[1])
	assert.Equal(t, "Side Story", entries[2].NumberToken)
	assert.Equal(t, []string{novelURL + "#tab-chapters-title"}, f.urls)
}

func TestNovLove_FetchChapterContent(t *testing.T) {
	pages := map[string]string{
		"https://novlove.com/c/1": `<div id="chr-content"><p>First.</p><p> </p><p>Second.</p></div>`,
		"https://novlove.com/c/2": `<div id="chr-content">Just   text</div>`,
		"https://novlove.com/c/3": `<div class="other">nothing</div>`,
	}
	src := NewNovLove(&pageFetcher{pages: pages}, nil)
	ctx := context.Background()

	text, err := src.FetchChapterContent(ctx, "https://novlove.com/c/1")
	require.NoError(t, err)
	assert.Equal(t, "First.\n\nSecond.", text)

	text, err = src.FetchChapterContent(ctx, "https://novlove.com/c/2")
	require.NoError(t, err)
	assert.Equal(t, "Just text", text)

	_, err = src.FetchChapterContent(ctx, "https://novlove.com/c/3")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestChapterToken(t *testing.T) {
	cases := map[string]string{
		"Chapter 12":               "12",
		"Chapter 12: 300 Spartans": "12:",
		"chapter 7 - Dawn":         "7",
		"Vol 2 Chapter 3":          "3",
		"Prologue":                 "Prologue",
		"Chapter":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ChapterToken(in), in)
	}
}

func TestExtractGenres(t *testing.T) {
	none := func(*fetcher.Page) ([]string, bool) { return nil, false }
	empty := func(*fetcher.Page) ([]string, bool) { return nil, true }

	assert.False(t, ExtractGenres(&fetcher.Page{}, none).Found)

	got := ExtractGenres(&fetcher.Page{}, none, empty)
	assert.True(t, got.Found)
	assert.Empty(t, got.Names)

	page := &fetcher.Page{Records: []fetcher.Record{{"genres": {"Author: X", "Genre: Action, Drama"}}}}
	assert.Equal(t, models.GenresFound("Action", "Drama"), ExtractGenres(page, GenresFromField("genres")))
}

func TestGenresFromMetaList_EmptyGenreEntry(t *testing.T) {
	page := &fetcher.Page{Body: []byte(`<ul class="info info-meta"><li><h3>Genre:</h3></li></ul>`)}
	names, ok := GenresFromMetaList(page)
	assert.True(t, ok)
	assert.Empty(t, names)

	_, ok = GenresFromMetaList(&fetcher.Page{Body: []byte(`<p>no meta</p>`)})
	assert.False(t, ok)
}

func TestApplyDetails(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	base := models.Novel{ID: 7, Title: "Old", Author: "Kept", AvgRating: 3.5, IsCompleted: true, LatestChapterNumber: 9}
	ongoing := "ongoing"

	got := ApplyDetails(base, &models.NovelDetails{Title: "New", Author: "  ", Status: &ongoing}, now)

	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "Kept", got.Author)
	assert.InDelta(t, 3.5, got.AvgRating, 0.0001)
	assert.False(t, got.IsCompleted)
	assert.Equal(t, 9, got.LatestChapterNumber)
	require.NotNil(t, got.LastScrapedAt)
	assert.Equal(t, now.UTC(), *got.LastScrapedAt)

	// missing status leaves completion alone
	got = ApplyDetails(base, &models.NovelDetails{}, now)
	assert.True(t, got.IsCompleted)
}

func TestRegistry(t *testing.T) {
	nl := NewNovLove(&pageFetcher{}, nil)
	r := NewRegistry(nl)

	s, err := r.For("https://www.novlove.com/novel/x")
	require.NoError(t, err)
	assert.Equal(t, nl, s)

	_, err = r.For("https://example.com/novel/x")
	assert.True(t, errors.Is(err, ErrNoSource))

	s, err = r.ByName("NovLove")
	require.NoError(t, err)
	assert.Equal(t, "https://novlove.com", s.BaseURL())
	assert.Equal(t, nl, r.Default())
	assert.Nil(t, NewRegistry().Default())
}

// pagingFetcher grows one listing across rounds the way a load-more
// button does.
type pagingFetcher struct {
	pageFetcher
	rounds []string
	paging fetcher.Paging
}

func (f *pagingFetcher) FetchPages(_ context.Context, url string, schema fetcher.Schema, paging fetcher.Paging, yield func(*fetcher.Page) bool) error {
	f.paging = paging
	for _, body := range f.rounds {
		recs, err := fetcher.Extract([]byte(body), url, schema)
		if err != nil {
			return err
		}
		if !yield(&fetcher.Page{URL: url, Body: []byte(body), Records: recs}) {
			return nil
		}
	}
	return nil
}

const listingRound1 = `<html><body>
<div class="flex justify-start"><a href="/novel/martial-god">Martial God</a></div>
<div class="flex justify-start"><a href="/novels?page=2">All</a></div>
</body></html>`

const listingRound2 = `<html><body>
<div class="flex justify-start"><a href="/novel/martial-god">Martial God</a></div>
<div class="flex justify-start"><a href="/novels?page=2">All</a></div>
<div class="flex justify-start"><a href="https://www.wuxiaworld.com/novel/overgeared">Overgeared</a></div>
</body></html>`

func TestWuxiaworld_ListNovelURLsFollowsLoadMore(t *testing.T) {
	f := &pagingFetcher{rounds: []string{listingRound1, listingRound2}}
	src := NewWuxiaworld(f, nil)

	urls, err := src.ListNovelURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.wuxiaworld.com/novel/martial-god",
		"https://www.wuxiaworld.com/novel/overgeared",
	}, urls)
	assert.Contains(t, f.paging.Script, "load-more-button")
	assert.Equal(t, 3*time.Second, f.paging.Pause)
}

func TestWuxiaworld_ListNovelURLsSinglePageFallback(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{"https://www.wuxiaworld.com/novels": listingRound1}}
	src := NewWuxiaworld(f, nil)

	urls, err := src.ListNovelURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.wuxiaworld.com/novel/martial-god"}, urls)

	_, err = NewWuxiaworld(&pageFetcher{}, nil).ListNovelURLs(context.Background())
	assert.ErrorIs(t, err, fetcher.ErrFetch)
}

func TestWuxiaworld_ScrapeDetails(t *testing.T) {
	const url = "https://www.wuxiaworld.com/novel/overgeared"
	page := `<html><head>
<meta property="og:title" content="Overgeared">
<meta property="og:description" content="A blacksmith.">
<meta property="og:image" content="https://cdn.wuxiaworld.com/o.jpg">
</head><body></body></html>`
	src := NewWuxiaworld(&pageFetcher{pages: map[string]string{url: page}}, nil)

	d, err := src.ScrapeDetails(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "Overgeared", d.Title)
	assert.Equal(t, "A blacksmith.", d.Description)
	assert.Equal(t, "https://cdn.wuxiaworld.com/o.jpg", d.CoverImageURL)
	assert.False(t, d.Genres.Found, "genres stay absent")

	_, err = src.ScrapeChapterList(context.Background(), url)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = src.FetchChapterContent(context.Background(), url+"/chapter-1")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRegistry_MultipleSources(t *testing.T) {
	nl := NewNovLove(&pageFetcher{}, nil)
	wx := NewWuxiaworld(&pageFetcher{}, nil)
	r := NewRegistry(nl, wx)

	s, err := r.For("https://www.wuxiaworld.com/novel/overgeared")
	require.NoError(t, err)
	assert.Equal(t, "Wuxiaworld", s.Name())
	assert.Equal(t, nl, r.Default())

	var _ Lister = wx
	_, isLister := Source(nl).(Lister)
	assert.False(t, isLister)
}
