package chapter

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/testutil"
	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

func TestRepo_InsertAndLookup(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	repo := NewRepo(db)

	num := 1
	id, err := repo.Insert(ctx, models.Chapter{NovelID: n.ID, Title: "Chapter 1", Number: &num, URL: "https://x/c1", Content: "text"})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Number)
	assert.Equal(t, 1, *got.Number)
	assert.Equal(t, "text", got.Content)

	missing, err := repo.FindByURL(ctx, "https://x/none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.Insert(ctx, models.Chapter{NovelID: n.ID, Title: "again", URL: "https://x/c1"})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestRepo_KnownURLsChunks(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")

	urls := make([]string, 0, urlLookupChunk+10)
	for i := 1; i <= urlLookupChunk+10; i++ {
		u := fmt.Sprintf("https://x/c%d", i)
		urls = append(urls, u)
		if i%2 == 0 {
			testutil.SeedChapter(t, db, n.ID, i, u)
		}
	}

	known, err := NewRepo(db).KnownURLs(ctx, urls)
	require.NoError(t, err)
	assert.Len(t, known, (urlLookupChunk+10)/2)
	assert.Contains(t, known, fmt.Sprintf("https://x/c%d", urlLookupChunk+10))
}

func TestRepo_MaxNumberIgnoresUnnumbered(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	repo := NewRepo(db)

	highest, err := repo.MaxNumber(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, highest)

	testutil.SeedChapter(t, db, n.ID, 0, "https://x/prologue")
	testutil.SeedChapter(t, db, n.ID, 7, "https://x/c7")
	testutil.SeedChapter(t, db, n.ID, 3, "https://x/c3")

	highest, err = repo.MaxNumber(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, highest)

	list, err := repo.ListByNovel(ctx, n.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "https://x/c3", list[0].URL)
	assert.Nil(t, list[2].Number)
}
