package chapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"novelhub/pkg/models"
)

// urlLookupChunk bounds the number of bind variables per IN (...) query.
const urlLookupChunk = 500

// Repo reads and writes chapters. DB is either the pool or a transaction.
type Repo struct {
	DB sqlx.ExtContext
}

func NewRepo(db sqlx.ExtContext) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Chapter, error) {
	var c models.Chapter
	err := sqlx.GetContext(ctx, r.DB, &c, `
		SELECT id, novel_id, title, chapter_number, url, content, published_date
		FROM chapters WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chapter %d: %w", id, err)
	}
	return &c, nil
}

func (r *Repo) FindByURL(ctx context.Context, url string) (*models.Chapter, error) {
	var c models.Chapter
	err := sqlx.GetContext(ctx, r.DB, &c, `
		SELECT id, novel_id, title, chapter_number, url, content, published_date
		FROM chapters WHERE url = ?
	`, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find chapter by url: %w", err)
	}
	return &c, nil
}

// KnownURLs returns the subset of urls already stored, for any novel.
func (r *Repo) KnownURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(urls))
	for start := 0; start < len(urls); start += urlLookupChunk {
		end := min(start+urlLookupChunk, len(urls))

		q, args, err := sqlx.In(`SELECT url FROM chapters WHERE url IN (?)`, urls[start:end])
		if err != nil {
			return nil, fmt.Errorf("build url lookup: %w", err)
		}
		var found []string
		if err := sqlx.SelectContext(ctx, r.DB, &found, r.DB.Rebind(q), args...); err != nil {
			return nil, fmt.Errorf("lookup chapter urls: %w", err)
		}
		for _, u := range found {
			known[u] = struct{}{}
		}
	}
	return known, nil
}

// Insert stores a new chapter. A duplicate url surfaces as a unique
// violation.
func (r *Repo) Insert(ctx context.Context, c models.Chapter) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO chapters (novel_id, title, chapter_number, url, content, published_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.NovelID, c.Title, c.Number, c.URL, c.Content, c.PublishedDate)
	if err != nil {
		return 0, fmt.Errorf("insert chapter %s: %w", c.URL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert chapter %s: %w", c.URL, err)
	}
	return id, nil
}

// MaxNumber is the highest chapter_number stored for the novel, or 0 when
// it has no numbered chapters.
func (r *Repo) MaxNumber(ctx context.Context, novelID int64) (int, error) {
	var highest sql.NullInt64
	err := sqlx.GetContext(ctx, r.DB, &highest,
		`SELECT MAX(chapter_number) FROM chapters WHERE novel_id = ?`, novelID)
	if err != nil {
		return 0, fmt.Errorf("max chapter number for novel %d: %w", novelID, err)
	}
	return int(highest.Int64), nil
}

func (r *Repo) CountByNovel(ctx context.Context, novelID int64) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.DB, &n, `SELECT COUNT(*) FROM chapters WHERE novel_id = ?`, novelID); err != nil {
		return 0, fmt.Errorf("count chapters for novel %d: %w", novelID, err)
	}
	return n, nil
}

// ListByNovel returns the chapter index of a novel without content,
// numbered chapters first in order.
func (r *Repo) ListByNovel(ctx context.Context, novelID int64, limit, offset int) ([]models.Chapter, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	out := make([]models.Chapter, 0)
	err := sqlx.SelectContext(ctx, r.DB, &out, `
		SELECT id, novel_id, title, chapter_number, url, '' AS content, published_date
		FROM chapters
		WHERE novel_id = ?
		ORDER BY chapter_number IS NULL, chapter_number ASC, id ASC
		LIMIT ? OFFSET ?
	`, novelID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list chapters for novel %d: %w", novelID, err)
	}
	return out, nil
}
