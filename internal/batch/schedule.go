package batch

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler periodically refreshes every stored novel.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *zap.Logger
}

// NewScheduler registers an "all" run on spec, a standard five-field cron
// expression. Runs are bound to ctx.
func NewScheduler(ctx context.Context, runner *Runner, spec string, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	s := &Scheduler{cron: c, runner: runner, log: log}
	if _, err := c.AddFunc(spec, func() { s.refresh(ctx) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) refresh(ctx context.Context) {
	rep, err := s.runner.Run(ctx, Selection{Mode: ModeAll})
	if errors.Is(err, ErrRunInProgress) {
		s.log.Info("scheduled refresh skipped, a run is active")
		return
	}
	if err != nil {
		s.log.Warn("scheduled refresh failed to start", zap.Error(err))
		return
	}
	s.log.Info("scheduled refresh done",
		zap.String("run_id", rep.Run.ID),
		zap.String("status", rep.Run.Status),
		zap.Int("new_chapters", rep.Run.NewChapters))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a refresh in progress to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
