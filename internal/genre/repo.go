package genre

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

// Repo reads and writes genres and novel/genre links. DB is either the
// pool or a transaction.
type Repo struct {
	DB sqlx.ExtContext
}

// Summary is a genre with the number of novels linked to it.
type Summary struct {
	models.Genre
	NovelCount int `db:"novel_count" json:"novel_count"`
}

func NewRepo(db sqlx.ExtContext) *Repo {
	return &Repo{DB: db}
}

// FindByName looks a genre up case-insensitively.
func (r *Repo) FindByName(ctx context.Context, name string) (*models.Genre, error) {
	var g models.Genre
	err := sqlx.GetContext(ctx, r.DB, &g,
		`SELECT id, name, name_key FROM genres WHERE name_key = ?`, models.GenreKey(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find genre %q: %w", name, err)
	}
	return &g, nil
}

func (r *Repo) Insert(ctx context.Context, name string) (*models.Genre, error) {
	display := models.GenreDisplayName(name)
	key := models.GenreKey(name)
	res, err := r.DB.ExecContext(ctx, `INSERT INTO genres (name, name_key) VALUES (?, ?)`, display, key)
	if err != nil {
		return nil, fmt.Errorf("insert genre %q: %w", display, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert genre %q: %w", display, err)
	}
	return &models.Genre{ID: id, Name: display, NameKey: key}, nil
}

// Ensure returns the genre named name, creating it when missing. A
// concurrent insert of the same name is resolved by re-reading the winner.
func (r *Repo) Ensure(ctx context.Context, name string) (*models.Genre, bool, error) {
	g, err := r.FindByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if g != nil {
		return g, false, nil
	}

	g, err = r.Insert(ctx, name)
	if err == nil {
		return g, true, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, false, err
	}

	g, err = r.FindByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if g == nil {
		return nil, false, fmt.Errorf("genre %q vanished after unique violation", name)
	}
	return g, false, nil
}

func (r *Repo) ListForNovel(ctx context.Context, novelID int64) ([]models.Genre, error) {
	out := make([]models.Genre, 0)
	err := sqlx.SelectContext(ctx, r.DB, &out, `
		SELECT g.id, g.name, g.name_key
		FROM genres g
		JOIN novel_genres ng ON ng.genre_id = g.id
		WHERE ng.novel_id = ?
		ORDER BY g.name ASC
	`, novelID)
	if err != nil {
		return nil, fmt.Errorf("list genres for novel %d: %w", novelID, err)
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0)
	err := sqlx.SelectContext(ctx, r.DB, &out, `
		SELECT g.id, g.name, g.name_key, COUNT(ng.novel_id) AS novel_count
		FROM genres g
		LEFT JOIN novel_genres ng ON ng.genre_id = g.id
		GROUP BY g.id, g.name, g.name_key
		ORDER BY g.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return out, nil
}

// Link records that the novel has the genre. Linking twice is a no-op.
func (r *Repo) Link(ctx context.Context, novelID, genreID int64) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO novel_genres (novel_id, genre_id) VALUES (?, ?)
		ON CONFLICT(novel_id, genre_id) DO NOTHING
	`, novelID, genreID)
	if err != nil {
		return fmt.Errorf("link genre %d to novel %d: %w", genreID, novelID, err)
	}
	return nil
}

func (r *Repo) Unlink(ctx context.Context, novelID int64, genreIDs ...int64) error {
	if len(genreIDs) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM novel_genres WHERE novel_id = ? AND genre_id IN (?)`, novelID, genreIDs)
	if err != nil {
		return fmt.Errorf("build unlink query: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, r.DB.Rebind(q), args...); err != nil {
		return fmt.Errorf("unlink genres from novel %d: %w", novelID, err)
	}
	return nil
}
