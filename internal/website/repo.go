package website

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"novelhub/pkg/models"
)

// Repo reads and writes websites. DB is either the pool or a transaction.
type Repo struct {
	DB sqlx.ExtContext
}

func NewRepo(db sqlx.ExtContext) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Website, error) {
	var w models.Website
	err := sqlx.GetContext(ctx, r.DB, &w, `SELECT id, name, url FROM websites WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get website %d: %w", id, err)
	}
	return &w, nil
}

// FindByName looks a website up by its natural key. Names are compared
// exactly.
func (r *Repo) FindByName(ctx context.Context, name string) (*models.Website, error) {
	var w models.Website
	err := sqlx.GetContext(ctx, r.DB, &w, `SELECT id, name, url FROM websites WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find website %q: %w", name, err)
	}
	return &w, nil
}

// Insert creates a website. A duplicate name surfaces as a unique
// violation for the caller to resolve.
func (r *Repo) Insert(ctx context.Context, name, url string) (*models.Website, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO websites (name, url) VALUES (?, ?)`, name, url)
	if err != nil {
		return nil, fmt.Errorf("insert website %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert website %q: %w", name, err)
	}
	return &models.Website{ID: id, Name: name, URL: url}, nil
}
