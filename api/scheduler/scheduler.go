package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/logging"
)

// OrphanFinder lists blob paths no case link points at
type OrphanFinder interface {
	Orphans(ctx context.Context) ([]string, error)
}

// SweepTimeout bounds a single orphan sweep
const SweepTimeout = 5 * time.Minute

// Scheduler runs the periodic orphan sweep. The sweep only reports; orphaned
// files are left for an operator to reconcile.
type Scheduler struct {
	cron     *cron.Cron
	log      *zap.SugaredLogger
	Finder   OrphanFinder
	Schedule string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(finder OrphanFinder, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		log:      logging.New("scheduler"),
		Finder:   finder,
		Schedule: schedule,
	}
}

// Start begins the scheduler with all registered jobs. An empty schedule leaves
// the sweep disabled.
func (s *Scheduler) Start() error {
	if s.Schedule == "" {
		s.log.Info("orphan sweep disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.Schedule, s.sweep); err != nil {
		s.log.Errorw("failed to register orphan sweep job", "schedule", s.Schedule, "error", err)
		return err
	}

	s.cron.Start()
	s.log.Infow("orphan sweep scheduler started", "schedule", s.Schedule)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("orphan sweep scheduler stopped")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), SweepTimeout)
	defer cancel()
	s.Sweep(ctx)
}

// Sweep runs one pass and returns what it found
func (s *Scheduler) Sweep(ctx context.Context) []string {
	orphans, err := s.Finder.Orphans(ctx)
	if err != nil {
		s.log.Errorw("orphan sweep failed", "error", err)
		return nil
	}
	for _, p := range orphans {
		s.log.Warnw("orphaned document has no case link", "path", p)
	}
	s.log.Infow("orphan sweep finished", "orphans", len(orphans))
	return orphans
}
