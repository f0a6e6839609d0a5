package novel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"novelhub/pkg/models"
)

// ErrNotFound is returned by update operations that target a missing novel.
var ErrNotFound = errors.New("novel not found")

const novelColumns = `id, title, author, description, cover_image_url, language, is_completed,
	avg_rating, source_url, source_website_id, last_scraped_at, latest_chapter_number,
	current_last_chapter_number`

// Repo reads and writes novels. DB is either the pool or a transaction.
type Repo struct {
	DB sqlx.ExtContext
}

type ListQuery struct {
	Q         string // keyword search in title/author
	Genre     string // genre name, case-insensitive
	Completed *bool
	Limit     int
	Offset    int
}

func NewRepo(db sqlx.ExtContext) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Novel, error) {
	var n models.Novel
	err := sqlx.GetContext(ctx, r.DB, &n, `SELECT `+novelColumns+` FROM novels WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get novel %d: %w", id, err)
	}
	return &n, nil
}

// FindBySourceURL looks a novel up by its natural key.
func (r *Repo) FindBySourceURL(ctx context.Context, sourceURL string) (*models.Novel, error) {
	var n models.Novel
	err := sqlx.GetContext(ctx, r.DB, &n, `SELECT `+novelColumns+` FROM novels WHERE source_url = ?`, sourceURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find novel by url: %w", err)
	}
	return &n, nil
}

// InsertStub reserves the identity of a discovered novel. A duplicate
// source_url surfaces as a unique violation.
func (r *Repo) InsertStub(ctx context.Context, sourceURL string, websiteID int64) (*models.Novel, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO novels (title, source_url, source_website_id)
		VALUES (?, ?, ?)
	`, models.StubTitle, sourceURL, websiteID)
	if err != nil {
		return nil, fmt.Errorf("insert novel stub: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert novel stub: %w", err)
	}
	return &models.Novel{
		ID:              id,
		Title:           models.StubTitle,
		SourceURL:       sourceURL,
		SourceWebsiteID: websiteID,
	}, nil
}

// InsertStubs creates stubs for every URL not yet stored and returns how
// many rows were created. Existing novels are left untouched.
func (r *Repo) InsertStubs(ctx context.Context, sourceURLs []string, websiteID int64) (int, error) {
	created := 0
	for _, u := range sourceURLs {
		res, err := r.DB.ExecContext(ctx, `
			INSERT INTO novels (title, source_url, source_website_id)
			VALUES (?, ?, ?)
			ON CONFLICT(source_url) DO NOTHING
		`, models.StubTitle, u, websiteID)
		if err != nil {
			return created, fmt.Errorf("insert novel stub %s: %w", u, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

// UpdateDetails writes the scraped metadata of n. Counters are owned by
// UpdateCounters and are not touched here.
func (r *Repo) UpdateDetails(ctx context.Context, n models.Novel) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE novels SET
		  title = ?,
		  author = ?,
		  description = ?,
		  cover_image_url = ?,
		  language = ?,
		  is_completed = ?,
		  avg_rating = ?,
		  last_scraped_at = ?
		WHERE id = ?
	`, n.Title, n.Author, n.Description, n.CoverImageURL, n.Language,
		n.IsCompleted, n.AvgRating, n.LastScrapedAt, n.ID)
	if err != nil {
		return fmt.Errorf("update novel %d: %w", n.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("update novel %d: %w", n.ID, ErrNotFound)
	}
	return nil
}

func (r *Repo) UpdateCounters(ctx context.Context, id int64, latest, current int) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE novels SET latest_chapter_number = ?, current_last_chapter_number = ?
		WHERE id = ?
	`, latest, current, id)
	if err != nil {
		return fmt.Errorf("update counters for novel %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("update counters for novel %d: %w", id, ErrNotFound)
	}
	return nil
}

// IDs returns novel ids in [from, to] in ascending order. A zero bound is
// open on that side.
func (r *Repo) IDs(ctx context.Context, from, to int64) ([]int64, error) {
	var (
		ids  []int64
		args []any
	)
	q := `SELECT id FROM novels WHERE 1 = 1`
	if from > 0 {
		q += ` AND id >= ?`
		args = append(args, from)
	}
	if to > 0 {
		q += ` AND id <= ?`
		args = append(args, to)
	}
	q += ` ORDER BY id ASC`

	if err := sqlx.SelectContext(ctx, r.DB, &ids, q, args...); err != nil {
		return nil, fmt.Errorf("list novel ids: %w", err)
	}
	return ids, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := sqlx.GetContext(ctx, r.DB, &total, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("count novels: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Novel, error) {
	sqlStr, args := buildListSQL(q, false)
	out := make([]models.Novel, 0)
	if err := sqlx.SelectContext(ctx, r.DB, &out, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("list novels: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the SELECT list.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + novelColumns + ` FROM novels`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM novels`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)")
		like := "%" + strings.ToLower(kw) + "%"
		args = append(args, like, like)
	}

	if g := strings.TrimSpace(q.Genre); g != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM novel_genres ng JOIN genres g ON g.id = ng.genre_id
			WHERE ng.novel_id = novels.id AND g.name_key = ?)`)
		args = append(args, models.GenreKey(g))
	}

	if q.Completed != nil {
		where = append(where, "is_completed = ?")
		args = append(args, *q.Completed)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		sqlStr += " ORDER BY title ASC, id ASC LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
