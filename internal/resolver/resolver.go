// Package resolver implements find-or-create for websites and novels keyed
// by their natural identities (website name, novel source URL).
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"novelhub/internal/novel"
	"novelhub/internal/website"
	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

type Resolver struct {
	db  *sqlx.DB
	log *zap.Logger
	// one in-flight resolution per source_url
	group singleflight.Group
	// beforeStub runs inside the shared resolution; tests use it to hold
	// callers in flight.
	beforeStub func()
}

func New(db *sqlx.DB, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{db: db, log: log}
}

// ResolveWebsite returns the website called name, creating it with url when
// it does not exist. The insert commits before returning.
func (r *Resolver) ResolveWebsite(ctx context.Context, name, url string) (*models.Website, error) {
	repo := website.NewRepo(r.db)

	w, err := repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if w != nil {
		return w, nil
	}

	w, err = repo.Insert(ctx, name, url)
	if err == nil {
		r.log.Info("created website", zap.String("website", name), zap.String("url", url))
		return w, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, err
	}

	// created concurrently, reuse it
	w, err = repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("resolve website %q: vanished after conflict", name)
	}
	return w, nil
}

type stubResult struct {
	novel   *models.Novel
	created bool
}

// ResolveOrStubNovel returns the novel stored under sourceURL, or persists a
// stub linked to w. created reports whether the stub was made by this
// resolution; callers coalesced onto the same url see the same value.
func (r *Resolver) ResolveOrStubNovel(ctx context.Context, sourceURL string, w *models.Website) (*models.Novel, bool, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, false, fmt.Errorf("resolve novel: empty source url")
	}
	if w == nil {
		return nil, false, fmt.Errorf("resolve novel %s: no website", sourceURL)
	}

	// The shared call is detached from ctx: one caller giving up must not
	// fail the others waiting on the same url. Each caller still stops
	// waiting when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(sourceURL, func() (any, error) {
		if r.beforeStub != nil {
			r.beforeStub()
		}
		n, created, err := r.resolveOrStub(shared, sourceURL, w.ID)
		if err != nil {
			return nil, err
		}
		return stubResult{novel: n, created: created}, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("resolve novel %s: %w", sourceURL, ctx.Err())
	case out := <-ch:
		if out.Err != nil {
			return nil, false, out.Err
		}
		res := out.Val.(stubResult)
		n := *res.novel
		return &n, res.created, nil
	}
}

func (r *Resolver) resolveOrStub(ctx context.Context, sourceURL string, websiteID int64) (*models.Novel, bool, error) {
	repo := novel.NewRepo(r.db)

	n, err := repo.FindBySourceURL(ctx, sourceURL)
	if err != nil {
		return nil, false, err
	}
	if n != nil {
		return n, false, nil
	}

	n, err = repo.InsertStub(ctx, sourceURL, websiteID)
	if err == nil {
		r.log.Debug("created novel stub", zap.String("url", sourceURL), zap.Int64("novel_id", n.ID))
		return n, true, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, false, err
	}

	n, err = repo.FindBySourceURL(ctx, sourceURL)
	if err != nil {
		return nil, false, err
	}
	if n == nil {
		return nil, false, fmt.Errorf("resolve novel %s: vanished after conflict", sourceURL)
	}
	return n, false, nil
}

// StubAll creates stubs for every URL not yet stored, in one transaction,
// and returns how many were created.
func (r *Resolver) StubAll(ctx context.Context, urls []string, w *models.Website) (int, error) {
	if w == nil {
		return 0, fmt.Errorf("stub novels: no website")
	}

	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return 0, nil
	}

	var created int
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		created, err = novel.NewRepo(tx).InsertStubs(ctx, clean, w.ID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("stub novels: %w", err)
	}

	r.log.Info("novel stubs stored",
		zap.String("website", w.Name),
		zap.Int("candidates", len(clean)),
		zap.Int("created", created))
	return created, nil
}
