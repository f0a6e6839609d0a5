package genre

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/testutil"
	"novelhub/pkg/models"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{"Fantasy", " fantasy ", "", "Martial  Arts", "ACTION", "action"})
	want := []string{"Fantasy", "Martial Arts", "ACTION"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff(t *testing.T) {
	current := []models.Genre{
		{ID: 1, Name: "Action"},
		{ID: 2, Name: "Romance"},
	}

	adds, removes := Diff(current, []string{"action", "Fantasy"})

	assert.Equal(t, []string{"Fantasy"}, adds)
	require.Len(t, removes, 1)
	assert.Equal(t, int64(2), removes[0].ID)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	r := NewReconciler(nil)
	repo := NewRepo(db)

	names := func() []string {
		gs, err := repo.ListForNovel(ctx, n.ID)
		require.NoError(t, err)
		out := make([]string, 0, len(gs))
		for _, g := range gs {
			out = append(out, g.Name)
		}
		return out
	}

	t.Run("adds missing genres", func(t *testing.T) {
		ch, err := r.Sync(ctx, db, n.ID, models.GenresFound("Action", "Fantasy"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Action", "Fantasy"}, ch.Added)
		assert.Equal(t, []string{"Action", "Fantasy"}, names())
	})

	t.Run("same set is a no-op", func(t *testing.T) {
		ch, err := r.Sync(ctx, db, n.ID, models.GenresFound("fantasy", "ACTION"))
		require.NoError(t, err)
		assert.Empty(t, ch.Added)
		assert.Empty(t, ch.Removed)
		assert.Equal(t, 2, testutil.CountRows(t, db, `SELECT COUNT(*) FROM genres`))
	})

	t.Run("replaces changed genres", func(t *testing.T) {
		ch, err := r.Sync(ctx, db, n.ID, models.GenresFound("Action", "Romance"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Romance"}, ch.Added)
		assert.Equal(t, []string{"Fantasy"}, ch.Removed)
		assert.Equal(t, []string{"Action", "Romance"}, names())
		// unlinked genres stay in the catalog
		assert.Equal(t, 3, testutil.CountRows(t, db, `SELECT COUNT(*) FROM genres`))
	})

	t.Run("absent field keeps links", func(t *testing.T) {
		ch, err := r.Sync(ctx, db, n.ID, models.ScrapedGenres{})
		require.NoError(t, err)
		assert.True(t, ch.Skipped)
		assert.Equal(t, []string{"Action", "Romance"}, names())
	})

	t.Run("found empty list clears links", func(t *testing.T) {
		ch, err := r.Sync(ctx, db, n.ID, models.GenresFound())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Action", "Romance"}, ch.Removed)
		assert.Empty(t, names())
	})
}

func TestEnsureAll(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	r := NewReconciler(nil)

	created, err := r.EnsureAll(ctx, db, []string{"Action", "action", "Drama"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = r.EnsureAll(ctx, db, []string{"DRAMA", "Horror"})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	g, err := NewRepo(db).FindByName(ctx, "drama")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "Drama", g.Name, "first spelling is kept")
}
