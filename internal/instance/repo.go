package instance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"novelhub/pkg/models"
)

// ErrURLTaken means the instance url is already registered to another
// novel.
var ErrURLTaken = errors.New("instance url belongs to another novel")

type Repo struct {
	DB sqlx.ExtContext
}

func NewRepo(db sqlx.ExtContext) *Repo {
	return &Repo{DB: db}
}

// Upsert stores an instance keyed by its url. An existing instance of the
// same novel gets the new version name and status.
func (r *Repo) Upsert(ctx context.Context, in models.NovelInstance) (*models.NovelInstance, error) {
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		return nil, fmt.Errorf("upsert instance: empty url")
	}
	if in.LastUpdated.IsZero() {
		in.LastUpdated = time.Now().UTC()
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO novel_instances (novel_id, url, version_name, status, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
		  version_name = excluded.version_name,
		  status = excluded.status,
		  last_updated = excluded.last_updated
		WHERE novel_instances.novel_id = excluded.novel_id
	`, in.NovelID, in.URL, in.VersionName, in.Status, in.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("upsert instance %s: %w", in.URL, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("upsert instance %s: %w", in.URL, ErrURLTaken)
	}

	var out models.NovelInstance
	err = sqlx.GetContext(ctx, r.DB, &out, `
		SELECT id, novel_id, url, version_name, status, last_updated
		FROM novel_instances WHERE url = ?
	`, in.URL)
	if err != nil {
		return nil, fmt.Errorf("reload instance %s: %w", in.URL, err)
	}
	return &out, nil
}

func (r *Repo) ListByNovel(ctx context.Context, novelID int64) ([]models.NovelInstance, error) {
	out := make([]models.NovelInstance, 0)
	err := sqlx.SelectContext(ctx, r.DB, &out, `
		SELECT id, novel_id, url, version_name, status, last_updated
		FROM novel_instances
		WHERE novel_id = ?
		ORDER BY last_updated DESC, id ASC
	`, novelID)
	if err != nil {
		return nil, fmt.Errorf("list instances for novel %d: %w", novelID, err)
	}
	return out, nil
}
