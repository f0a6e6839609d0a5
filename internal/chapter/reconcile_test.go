package chapter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/novel"
	"novelhub/internal/testutil"
	"novelhub/pkg/models"
)

type fakeContent struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeContent) FetchChapterContent(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if f.fail[url] {
		return "", errors.New("timeout")
	}
	return "content of " + url, nil
}

func entries(from, to int) []models.ChapterEntry {
	out := make([]models.ChapterEntry, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, models.ChapterEntry{
			Title:       fmt.Sprintf("Chapter %d", i),
			URL:         fmt.Sprintf("https://novlove.com/novel/a/chapter-%d", i),
			NumberToken: fmt.Sprint(i),
		})
	}
	return out
}

func loadNovel(t *testing.T, repo *novel.Repo, id int64) *models.Novel {
	t.Helper()
	n, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, n)
	return n
}

func TestReconcile_FirstPassAndIdempotence(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	content := &fakeContent{}
	r := NewReconciler(nil, content)

	res, err := r.Reconcile(ctx, db, n.ID, entries(1, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewChapters)
	assert.Equal(t, 3, res.LatestChapterNumber)
	assert.Equal(t, 3, res.CurrentLastChapterNumber)
	assert.Len(t, content.calls, 3)

	novels := novel.NewRepo(db)
	before := loadNovel(t, novels, n.ID)

	res, err = r.Reconcile(ctx, db, n.ID, entries(1, 3))
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewChapters)
	assert.Equal(t, 3, res.Known)
	assert.Len(t, content.calls, 3, "known chapters are not fetched again")
	assert.Equal(t, 3, testutil.CountRows(t, db, `SELECT COUNT(*) FROM chapters WHERE novel_id = ?`, n.ID))
	assert.Equal(t, 3, res.LatestChapterNumber)
	assert.Equal(t, 3, res.CurrentLastChapterNumber)

	after := loadNovel(t, novels, n.ID)
	assert.Equal(t, before.LatestChapterNumber, after.LatestChapterNumber)
	assert.Equal(t, before.CurrentLastChapterNumber, after.CurrentLastChapterNumber)
	assert.Equal(t, 3, after.CurrentLastChapterNumber)

	stored, err := NewRepo(db).FindByURL(ctx, "https://novlove.com/novel/a/chapter-2")
	require.NoError(t, err)
	assert.Equal(t, "content of https://novlove.com/novel/a/chapter-2", stored.Content)
}

func TestReconcile_FillsGapsAndRecomputesCounters(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	for _, i := range []int{1, 2, 3, 5} {
		testutil.SeedChapter(t, db, n.ID, i, fmt.Sprintf("https://novlove.com/novel/a/chapter-%d", i))
	}

	res, err := NewReconciler(nil, nil).Reconcile(ctx, db, n.ID, entries(1, 6))
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewChapters)
	assert.Equal(t, 4, res.Known)

	got := loadNovel(t, novel.NewRepo(db), n.ID)
	assert.Equal(t, 6, got.LatestChapterNumber)
	assert.Equal(t, 6, got.CurrentLastChapterNumber)
}

func TestReconcile_SiteAheadOfStore(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	content := &fakeContent{fail: map[string]bool{
		"https://novlove.com/novel/a/chapter-4": true,
	}}

	res, err := NewReconciler(nil, content).Reconcile(ctx, db, n.ID, entries(1, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewChapters)
	assert.Equal(t, 1, res.ContentFailed)
	assert.Equal(t, 4, res.LatestChapterNumber)
	assert.Equal(t, 3, res.CurrentLastChapterNumber)

	// the failed chapter is picked up as new on the next pass
	content.fail = nil
	res, err = NewReconciler(nil, content).Reconcile(ctx, db, n.ID, entries(1, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewChapters)
	assert.Equal(t, 4, res.CurrentLastChapterNumber)
}

func TestPrepare_EdgeCases(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")

	in := []models.ChapterEntry{
		{Title: "Chapter 1", URL: "https://x/1", NumberToken: "1"},
		{Title: "Chapter 1 again", URL: " https://x/1 ", NumberToken: "1"},
		{Title: "lost", URL: "   ", NumberToken: "9"},
		{Title: "", URL: "https://x/extra", NumberToken: "Side Story"},
	}

	plan, err := NewReconciler(nil, nil).Prepare(ctx, db, n.ID, in)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Duplicates)
	assert.Equal(t, 1, plan.Dropped)
	assert.Equal(t, 1, plan.LatestOnSite, "dropped entries do not count")
	require.Len(t, plan.New, 2)
	assert.Equal(t, "Chapter 1", plan.New[0].Title, "first occurrence wins")
	assert.Equal(t, "No Title", plan.New[1].Title)
	assert.Nil(t, plan.New[1].Number)
}

func TestReconcile_NoNumbersKeepsPreviousLatest(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	novels := novel.NewRepo(db)
	require.NoError(t, novels.UpdateCounters(ctx, n.ID, 40, 0))

	res, err := NewReconciler(nil, nil).Reconcile(ctx, db, n.ID, []models.ChapterEntry{
		{Title: "Afterword", URL: "https://x/afterword"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewChapters)
	assert.Equal(t, 40, res.LatestChapterNumber)
	assert.Equal(t, 0, res.CurrentLastChapterNumber)
}

func TestPrepare_CancelledContextAborts(t *testing.T) {
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")

	ctx, cancel := context.WithCancel(context.Background())
	content := &cancellingContent{cancel: cancel}

	_, err := NewReconciler(nil, content).Prepare(ctx, db, n.ID, entries(1, 2))
	assert.ErrorIs(t, err, context.Canceled)
}

type cancellingContent struct{ cancel context.CancelFunc }

func (c *cancellingContent) FetchChapterContent(ctx context.Context, _ string) (string, error) {
	c.cancel()
	return "", ctx.Err()
}
