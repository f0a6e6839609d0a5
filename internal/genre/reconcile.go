package genre

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"novelhub/pkg/models"
)

// Change describes what Sync did to a novel's genre set.
type Change struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	// Skipped is set when the scrape carried no genre information.
	Skipped bool `json:"skipped,omitempty"`
}

// Normalize returns the distinct genre names in first-seen order. Names are
// compared by models.GenreKey; the first spelling wins. Blank names are
// dropped.
func Normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := models.GenreKey(n)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.GenreDisplayName(n))
	}
	return out
}

// Diff compares a novel's current genres with the desired names. Links
// present on both sides appear in neither result.
func Diff(current []models.Genre, desired []string) (adds []string, removes []models.Genre) {
	have := make(map[string]struct{}, len(current))
	for _, g := range current {
		have[models.GenreKey(g.Name)] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for _, name := range Normalize(desired) {
		key := models.GenreKey(name)
		want[key] = struct{}{}
		if _, ok := have[key]; !ok {
			adds = append(adds, name)
		}
	}
	for _, g := range current {
		if _, ok := want[models.GenreKey(g.Name)]; !ok {
			removes = append(removes, g)
		}
	}
	return adds, removes
}

// Reconciler brings a novel's genre links in line with a fresh scrape.
type Reconciler struct {
	log *zap.Logger
}

func NewReconciler(log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{log: log}
}

// Sync makes the novel's genres equal to scraped. A scrape that did not
// find the genre field leaves the existing links alone; a found empty list
// clears them.
func (r *Reconciler) Sync(ctx context.Context, db sqlx.ExtContext, novelID int64, scraped models.ScrapedGenres) (Change, error) {
	if !scraped.Found {
		r.log.Debug("no genre information, keeping links", zap.Int64("novel_id", novelID))
		return Change{Skipped: true}, nil
	}

	repo := NewRepo(db)
	current, err := repo.ListForNovel(ctx, novelID)
	if err != nil {
		return Change{}, err
	}

	adds, removes := Diff(current, scraped.Names)
	var change Change

	for _, name := range adds {
		g, created, err := repo.Ensure(ctx, name)
		if err != nil {
			return Change{}, fmt.Errorf("ensure genre: %w", err)
		}
		if created {
			r.log.Info("created genre", zap.String("genre", g.Name))
		}
		if err := repo.Link(ctx, novelID, g.ID); err != nil {
			return Change{}, err
		}
		change.Added = append(change.Added, g.Name)
	}

	if len(removes) > 0 {
		ids := make([]int64, 0, len(removes))
		for _, g := range removes {
			ids = append(ids, g.ID)
			change.Removed = append(change.Removed, g.Name)
		}
		if err := repo.Unlink(ctx, novelID, ids...); err != nil {
			return Change{}, err
		}
	}

	return change, nil
}

// EnsureAll creates every genre in names that does not exist yet and
// returns how many were created.
func (r *Reconciler) EnsureAll(ctx context.Context, db sqlx.ExtContext, names []string) (int, error) {
	repo := NewRepo(db)
	created := 0
	for _, name := range Normalize(names) {
		_, ok, err := repo.Ensure(ctx, name)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}
