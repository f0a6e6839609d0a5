package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"novelhub/pkg/models"
)

const runColumns = `id, mode, novel_url, start_id, end_id, status, processed, failed,
	new_chapters, last_novel_id, started_at, finished_at`

// RunRepo keeps the scrape_runs bookkeeping table.
type RunRepo struct {
	DB sqlx.ExtContext
}

func NewRunRepo(db sqlx.ExtContext) *RunRepo {
	return &RunRepo{DB: db}
}

func (r *RunRepo) Create(ctx context.Context, run models.ScrapeRun) error {
	_, err := sqlx.NamedExecContext(ctx, r.DB, `
		INSERT INTO scrape_runs (id, mode, novel_url, start_id, end_id, status, processed,
		  failed, new_chapters, last_novel_id, started_at)
		VALUES (:id, :mode, :novel_url, :start_id, :end_id, :status, :processed,
		  :failed, :new_chapters, :last_novel_id, :started_at)
	`, run)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunRepo) Get(ctx context.Context, id string) (*models.ScrapeRun, error) {
	var run models.ScrapeRun
	err := sqlx.GetContext(ctx, r.DB, &run, `SELECT `+runColumns+` FROM scrape_runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *RunRepo) List(ctx context.Context, limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs := []models.ScrapeRun{}
	err := sqlx.SelectContext(ctx, r.DB, &runs,
		`SELECT `+runColumns+` FROM scrape_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Checkpoint records progress after a novel. lastNovelID is the highest id
// below which every selected novel has been processed.
func (r *RunRepo) Checkpoint(ctx context.Context, run models.ScrapeRun) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE scrape_runs
		SET processed = ?, failed = ?, new_chapters = ?, last_novel_id = ?
		WHERE id = ?
	`, run.Processed, run.Failed, run.NewChapters, run.LastNovelID, run.ID)
	if err != nil {
		return fmt.Errorf("checkpoint run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunRepo) SetStatus(ctx context.Context, id, status string, finishedAt *time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE scrape_runs SET status = ?, finished_at = ? WHERE id = ?`, status, finishedAt, id)
	if err != nil {
		return fmt.Errorf("set run %s %s: %w", id, status, err)
	}
	return nil
}

// InterruptStale marks runs left "running" by a dead process as
// interrupted so they can be resumed.
func (r *RunRepo) InterruptStale(ctx context.Context) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE scrape_runs SET status = ? WHERE status = ?`, models.RunInterrupted, models.RunRunning)
	if err != nil {
		return 0, fmt.Errorf("interrupt stale runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
