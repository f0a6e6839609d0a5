package instance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/novel"
	"novelhub/internal/testutil"
	"novelhub/pkg/models"
)

func TestRepo_Upsert(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	a := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	b := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/b")
	repo := NewRepo(db)

	first, err := repo.Upsert(ctx, models.NovelInstance{NovelID: a.ID, URL: "https://mirror/a", VersionName: "raw"})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, models.NovelInstance{NovelID: a.ID, URL: " https://mirror/a ", VersionName: "translated", Status: "ongoing"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "translated", second.VersionName)

	_, err = repo.Upsert(ctx, models.NovelInstance{NovelID: b.ID, URL: "https://mirror/a"})
	assert.ErrorIs(t, err, ErrURLTaken)

	_, err = repo.Upsert(ctx, models.NovelInstance{NovelID: b.ID, URL: "  "})
	assert.Error(t, err)

	list, err := repo.ListByNovel(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/b")

	r := gin.New()
	novels := r.Group("/novels")
	NewHandler(NewRepo(db), novel.NewRepo(db)).RegisterRoutes(novels, novels)

	do := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/novels/1/instances", `{"url":"https://mirror/a"}`))
	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/novels/2/instances", `{"url":"https://mirror/a"}`))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/novels/1/instances", `{}`))
	assert.Equal(t, http.StatusNotFound, do(http.MethodPost, "/novels/9/instances", `{"url":"https://mirror/z"}`))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/novels/1/instances", ""))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/novels/0/instances", ""))
}
