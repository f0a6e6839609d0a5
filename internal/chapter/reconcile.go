package chapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"novelhub/internal/novel"
	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

// ContentFetcher downloads the text of one chapter page.
type ContentFetcher interface {
	FetchChapterContent(ctx context.Context, url string) (string, error)
}

// Plan is the outcome of comparing a scraped chapter list with the store,
// before anything is written. New chapters already carry their content.
type Plan struct {
	NovelID int64
	New     []models.Chapter
	// LatestOnSite is the highest chapter number parsed from the scrape,
	// known or new; 0 when no entry carried a number.
	LatestOnSite  int
	Known         int
	Duplicates    int
	Dropped       int
	ContentFailed int
}

// Result summarises one reconciliation.
type Result struct {
	NewChapters              int `json:"new_chapters"`
	Known                    int `json:"known"`
	Duplicates               int `json:"duplicates,omitempty"`
	Dropped                  int `json:"dropped,omitempty"`
	ContentFailed            int `json:"content_failed,omitempty"`
	LatestChapterNumber      int `json:"latest_chapter_number"`
	CurrentLastChapterNumber int `json:"current_last_chapter_number"`
}

// Reconciler merges scraped chapter lists into stored chapters by URL.
type Reconciler struct {
	log     *zap.Logger
	content ContentFetcher
}

// NewReconciler builds a reconciler. With a nil content fetcher new
// chapters are stored with empty content.
func NewReconciler(log *zap.Logger, content ContentFetcher) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{log: log, content: content}
}

// Prepare works out which entries are new and fetches their content. It
// only reads from db. A content failure drops that chapter from the plan so
// it is retried as new on the next pass.
func (r *Reconciler) Prepare(ctx context.Context, db sqlx.ExtContext, novelID int64, entries []models.ChapterEntry) (*Plan, error) {
	plan := &Plan{NovelID: novelID}
	seen := make(map[string]struct{}, len(entries))
	candidates := make([]models.Chapter, 0, len(entries))
	urls := make([]string, 0, len(entries))

	for _, e := range entries {
		url := strings.TrimSpace(e.URL)
		if url == "" {
			r.log.Warn("dropping chapter without url",
				zap.Int64("novel_id", novelID), zap.String("title", e.Title))
			plan.Dropped++
			continue
		}

		c := models.Chapter{
			NovelID:       novelID,
			Title:         strings.TrimSpace(e.Title),
			URL:           url,
			PublishedDate: e.PublishedDate,
		}
		if n, ok := ParseNumber(e.NumberToken); ok {
			c.Number = &n
			if n > plan.LatestOnSite {
				plan.LatestOnSite = n
			}
		}
		if c.Title == "" {
			c.Title = "No Title"
		}

		if _, dup := seen[url]; dup {
			plan.Duplicates++
			continue
		}
		seen[url] = struct{}{}
		candidates = append(candidates, c)
		urls = append(urls, url)
	}

	known, err := NewRepo(db).KnownURLs(ctx, urls)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if _, ok := known[c.URL]; ok {
			plan.Known++
			continue
		}

		if r.content != nil {
			text, err := r.content.FetchChapterContent(ctx, c.URL)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				r.log.Warn("chapter content fetch failed, will retry next run",
					zap.Int64("novel_id", novelID), zap.String("url", c.URL), zap.Error(err))
				plan.ContentFailed++
				continue
			}
			c.Content = text
		}
		plan.New = append(plan.New, c)
	}

	return plan, nil
}

// Apply inserts the planned chapters and recomputes the novel's counters.
// It must run inside the novel's transaction. current_last_chapter_number
// is read back from the chapters table, never carried forward.
func (r *Reconciler) Apply(ctx context.Context, tx sqlx.ExtContext, plan *Plan) (Result, error) {
	chapters := NewRepo(tx)
	novels := novel.NewRepo(tx)

	res := Result{
		Known:         plan.Known,
		Duplicates:    plan.Duplicates,
		Dropped:       plan.Dropped,
		ContentFailed: plan.ContentFailed,
	}

	for _, c := range plan.New {
		if _, err := chapters.Insert(ctx, c); err != nil {
			if database.IsUniqueViolation(err) {
				// stored by someone else since Prepare
				res.Known++
				continue
			}
			return Result{}, err
		}
		res.NewChapters++
	}

	latest := plan.LatestOnSite
	if latest == 0 {
		n, err := novels.GetByID(ctx, plan.NovelID)
		if err != nil {
			return Result{}, err
		}
		if n == nil {
			return Result{}, fmt.Errorf("reconcile chapters: %w", novel.ErrNotFound)
		}
		latest = n.LatestChapterNumber
	}

	current, err := chapters.MaxNumber(ctx, plan.NovelID)
	if err != nil {
		return Result{}, err
	}

	if err := novels.UpdateCounters(ctx, plan.NovelID, latest, current); err != nil {
		return Result{}, err
	}

	res.LatestChapterNumber = latest
	res.CurrentLastChapterNumber = current
	return res, nil
}

// Reconcile runs Prepare and then Apply in its own transaction.
func (r *Reconciler) Reconcile(ctx context.Context, db *sqlx.DB, novelID int64, entries []models.ChapterEntry) (Result, error) {
	plan, err := r.Prepare(ctx, db, novelID, entries)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		var applyErr error
		res, applyErr = r.Apply(ctx, tx, plan)
		return applyErr
	})
	if err != nil {
		return Result{}, fmt.Errorf("reconcile chapters for novel %d: %w", novelID, err)
	}

	r.log.Info("chapters reconciled",
		zap.Int64("novel_id", novelID),
		zap.Int("new_chapters", res.NewChapters),
		zap.Int("known", res.Known),
		zap.Int("current_last", res.CurrentLastChapterNumber))
	return res, nil
}
