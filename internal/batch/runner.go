// Package batch drives reconciliation over a selection of novels, one
// transaction per novel, keeping resumable run bookkeeping.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"novelhub/internal/chapter"
	"novelhub/internal/events"
	"novelhub/internal/genre"
	"novelhub/internal/novel"
	"novelhub/internal/resolver"
	"novelhub/internal/scraper"
	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

var (
	ErrRunInProgress = errors.New("a scrape run is already in progress")
	ErrRunNotFound   = errors.New("run not found")
	ErrRunFinished   = errors.New("run already completed")
)

// SourceFinder picks the site adapter for a novel URL.
type SourceFinder interface {
	For(url string) (scraper.Source, error)
}

type Options struct {
	// FetchContent downloads the text of new chapters; when false they are
	// stored with empty content.
	FetchContent bool
	// Workers above 1 reconciles that many novels at once.
	Workers int
}

type Runner struct {
	db       *sqlx.DB
	sources  SourceFinder
	resolver *resolver.Resolver
	genres   *genre.Reconciler
	runs     *RunRepo
	pub      events.Publisher
	log      *zap.Logger
	opts     Options
	now      func() time.Time

	busy sync.Mutex
}

func NewRunner(db *sqlx.DB, sources SourceFinder, res *resolver.Resolver, pub events.Publisher, log *zap.Logger, opts Options) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		db:       db,
		sources:  sources,
		resolver: res,
		genres:   genre.NewReconciler(log.Named("genre")),
		runs:     NewRunRepo(db),
		pub:      pub,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// NovelReport is the outcome for one novel.
type NovelReport struct {
	NovelID     int64          `json:"novel_id"`
	URL         string         `json:"url"`
	OK          bool           `json:"ok"`
	Error       string         `json:"error,omitempty"`
	NewChapters int            `json:"new_chapters"`
	Genres      genre.Change   `json:"genres"`
	Chapters    chapter.Result `json:"chapters"`
}

type Report struct {
	Run    models.ScrapeRun `json:"run"`
	Novels []NovelReport    `json:"novels"`
}

// Job is a run in progress.
type Job struct {
	Run    models.ScrapeRun
	done   chan struct{}
	report *Report
}

func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the run ends and returns its report.
func (j *Job) Wait() *Report {
	<-j.done
	return j.report
}

// Run processes sel to the end. Cancelling ctx stops the run between
// novels and leaves it resumable.
func (r *Runner) Run(ctx context.Context, sel Selection) (*Report, error) {
	job, err := r.Begin(ctx, sel)
	if err != nil {
		return nil, err
	}
	return job.Wait(), nil
}

// Begin records a new run for sel and processes it in the background.
// Only one run may be active per Runner.
func (r *Runner) Begin(ctx context.Context, sel Selection) (*Job, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if !r.busy.TryLock() {
		return nil, ErrRunInProgress
	}

	ids, err := r.selectNovels(ctx, sel)
	if err != nil {
		r.busy.Unlock()
		return nil, err
	}

	run := models.ScrapeRun{
		ID:        uuid.NewString(),
		Mode:      string(sel.Mode),
		NovelURL:  sel.NovelURL,
		StartID:   sel.StartID,
		EndID:     sel.EndID,
		Status:    models.RunRunning,
		StartedAt: r.now().UTC(),
	}
	if err := r.runs.Create(ctx, run); err != nil {
		r.busy.Unlock()
		return nil, err
	}
	return r.launch(ctx, run, ids), nil
}

// Resume continues an interrupted run after its checkpoint, under the
// same run id. Novels added since inside the run's bounds are included.
func (r *Runner) Resume(ctx context.Context, runID string) (*Job, error) {
	if !r.busy.TryLock() {
		return nil, ErrRunInProgress
	}

	job, err := r.resume(ctx, runID)
	if err != nil {
		r.busy.Unlock()
		return nil, err
	}
	return job, nil
}

func (r *Runner) resume(ctx context.Context, runID string) (*Job, error) {
	run, err := r.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("resume %s: %w", runID, ErrRunNotFound)
	}
	if run.Status == models.RunCompleted {
		return nil, fmt.Errorf("resume %s: %w", runID, ErrRunFinished)
	}

	var ids []int64
	switch Mode(run.Mode) {
	case ModeSingle:
		ids, err = r.selectNovels(ctx, Selection{Mode: ModeSingle, NovelURL: run.NovelURL})
	default:
		from := run.StartID
		if run.LastNovelID >= from {
			from = run.LastNovelID + 1
		}
		ids, err = novel.NewRepo(r.db).IDs(ctx, from, run.EndID)
	}
	if err != nil {
		return nil, err
	}

	run.Status = models.RunRunning
	run.FinishedAt = nil
	if err := r.runs.SetStatus(ctx, run.ID, run.Status, nil); err != nil {
		return nil, err
	}

	r.log.Info("resuming run",
		zap.String("run_id", run.ID),
		zap.Int64("after_novel_id", run.LastNovelID),
		zap.Int("remaining", len(ids)))
	return r.launch(ctx, *run, ids), nil
}

func (r *Runner) launch(ctx context.Context, run models.ScrapeRun, ids []int64) *Job {
	job := &Job{Run: run, done: make(chan struct{})}
	go func() {
		defer close(job.done)
		defer r.busy.Unlock()
		job.report = r.execute(ctx, run, ids)
	}()
	return job
}

func (r *Runner) selectNovels(ctx context.Context, sel Selection) ([]int64, error) {
	switch sel.Mode {
	case ModeSingle:
		src, err := r.sources.For(sel.NovelURL)
		if err != nil {
			return nil, err
		}
		w, err := r.resolver.ResolveWebsite(ctx, src.Name(), src.BaseURL())
		if err != nil {
			return nil, err
		}
		n, _, err := r.resolver.ResolveOrStubNovel(ctx, sel.NovelURL, w)
		if err != nil {
			return nil, err
		}
		return []int64{n.ID}, nil
	case ModeRange:
		return novel.NewRepo(r.db).IDs(ctx, sel.StartID, sel.EndID)
	default:
		return novel.NewRepo(r.db).IDs(ctx, 0, 0)
	}
}

func (r *Runner) execute(ctx context.Context, run models.ScrapeRun, ids []int64) *Report {
	log := r.log.With(zap.String("run_id", run.ID))
	// bookkeeping must land even after the run is cancelled
	bookCtx := context.WithoutCancel(ctx)

	log.Info("run started", zap.String("mode", run.Mode), zap.Int("novels", len(ids)))
	r.pub.Publish(events.Event{Type: events.RunStarted, RunID: run.ID, Status: run.Status})

	rep := &Report{}
	cp := newCheckpointer(run.LastNovelID, ids)
	var mu sync.Mutex

	record := func(nr NovelReport) {
		mu.Lock()
		defer mu.Unlock()

		rep.Novels = append(rep.Novels, nr)
		run.Processed++
		if !nr.OK {
			run.Failed++
		}
		run.NewChapters += nr.NewChapters
		run.LastNovelID = cp.complete(nr.NovelID)

		if err := r.runs.Checkpoint(bookCtx, run); err != nil {
			log.Warn("checkpoint failed", zap.Error(err))
		}

		ev := events.Event{RunID: run.ID, NovelID: nr.NovelID, URL: nr.URL, NewChapters: nr.NewChapters}
		if nr.OK {
			ev.Type = events.NovelSucceeded
		} else {
			ev.Type = events.NovelFailed
			ev.Error = nr.Error
		}
		r.pub.Publish(ev)
	}

	// A novel that failed after ctx was cancelled committed nothing; it is
	// neither counted nor checkpointed so a resume picks it up again.
	finish := func(nr NovelReport) {
		if !nr.OK && ctx.Err() != nil {
			log.Info("novel interrupted, left for resume",
				zap.Int64("novel_id", nr.NovelID), zap.String("url", nr.URL))
			return
		}
		record(nr)
	}

	if r.opts.Workers <= 1 {
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			finish(r.processNovel(ctx, log, id))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Workers)
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				finish(r.processNovel(ctx, log, id))
				return nil
			})
		}
		_ = g.Wait()
	}

	run.Status = models.RunCompleted
	if ctx.Err() != nil {
		run.Status = models.RunInterrupted
	}
	finished := r.now().UTC()
	run.FinishedAt = &finished
	if err := r.runs.SetStatus(bookCtx, run.ID, run.Status, run.FinishedAt); err != nil {
		log.Warn("could not record run status", zap.Error(err))
	}

	sort.Slice(rep.Novels, func(i, j int) bool { return rep.Novels[i].NovelID < rep.Novels[j].NovelID })
	rep.Run = run

	r.pub.Publish(events.Event{
		Type:        events.RunFinished,
		RunID:       run.ID,
		Status:      run.Status,
		Processed:   run.Processed,
		Failed:      run.Failed,
		NewChapters: run.NewChapters,
	})
	log.Info("run finished",
		zap.String("status", run.Status),
		zap.Int("processed", run.Processed),
		zap.Int("failed", run.Failed),
		zap.Int("new_chapters", run.NewChapters))
	return rep
}

// processNovel never fails the batch: every error, panics included, ends
// up in the report.
func (r *Runner) processNovel(ctx context.Context, log *zap.Logger, id int64) (rep NovelReport) {
	rep.NovelID = id
	defer func() {
		if p := recover(); p != nil {
			rep.OK = false
			rep.Error = fmt.Sprintf("panic: %v", p)
			log.Error("novel panicked", zap.Int64("novel_id", id), zap.Any("panic", p))
		}
	}()

	if err := r.reconcileNovel(ctx, &rep); err != nil {
		rep.Error = err.Error()
		log.Warn("novel failed", zap.Int64("novel_id", id), zap.String("url", rep.URL), zap.Error(err))
		return rep
	}

	rep.OK = true
	log.Info("novel reconciled",
		zap.Int64("novel_id", id),
		zap.String("url", rep.URL),
		zap.Int("new_chapters", rep.NewChapters),
		zap.Int("genres_added", len(rep.Genres.Added)),
		zap.Int("genres_removed", len(rep.Genres.Removed)))
	return rep
}

func (r *Runner) reconcileNovel(ctx context.Context, rep *NovelReport) error {
	n, err := novel.NewRepo(r.db).GetByID(ctx, rep.NovelID)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("load novel %d: %w", rep.NovelID, novel.ErrNotFound)
	}
	rep.URL = n.SourceURL

	src, err := r.sources.For(n.SourceURL)
	if err != nil {
		return err
	}

	details, err := src.ScrapeDetails(ctx, n.SourceURL)
	if err != nil {
		return err
	}
	entries, err := src.ScrapeChapterList(ctx, n.SourceURL)
	switch {
	case errors.Is(err, scraper.ErrUnsupported):
		// details-only source; stored chapters and counters stay as they are
		r.log.Debug("chapter list not supported", zap.String("source", src.Name()), zap.Int64("novel_id", n.ID))
		entries = nil
	case err != nil:
		return err
	}

	var content chapter.ContentFetcher
	if r.opts.FetchContent {
		content = src
	}
	chapters := chapter.NewReconciler(r.log.Named("chapter"), content)

	plan, err := chapters.Prepare(ctx, r.db, n.ID, entries)
	if err != nil {
		return err
	}

	var (
		change genre.Change
		result chapter.Result
	)
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		novels := novel.NewRepo(tx)
		cur, err := novels.GetByID(ctx, n.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("reload novel %d: %w", n.ID, novel.ErrNotFound)
		}
		if err := novels.UpdateDetails(ctx, scraper.ApplyDetails(*cur, details, r.now())); err != nil {
			return err
		}
		if change, err = r.genres.Sync(ctx, tx, n.ID, details.Genres); err != nil {
			return err
		}
		result, err = chapters.Apply(ctx, tx, plan)
		return err
	})
	if err != nil {
		return fmt.Errorf("commit novel %d: %w", n.ID, err)
	}

	rep.Genres = change
	rep.Chapters = result
	rep.NewChapters = result.NewChapters
	return nil
}

// checkpointer tracks the highest id at or below which every selected
// novel is done, whatever order workers finish in. An id that never
// completes holds the mark below it.
type checkpointer struct {
	mark    int64
	pending []int64
	next    int
	done    map[int64]bool
}

func newCheckpointer(mark int64, ids []int64) *checkpointer {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &checkpointer{mark: mark, pending: sorted, done: make(map[int64]bool, len(ids))}
}

func (c *checkpointer) complete(id int64) int64 {
	c.done[id] = true
	for c.next < len(c.pending) && c.done[c.pending[c.next]] {
		c.mark = c.pending[c.next]
		c.next++
	}
	return c.mark
}
