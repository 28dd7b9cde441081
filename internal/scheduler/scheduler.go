package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/i474232898/brightside/internal/dashboard"
	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/store"
)

const (
	jobTimeout      = 30 * time.Second
	defaultInterval = 10 * time.Minute
)

// Config controls the live-feed job.
type Config struct {
	Interval time.Duration

	// RefreshRPS and Burst pace dashboard refreshes so a run stays within the
	// provider's call budget. RefreshRPS <= 0 disables pacing.
	RefreshRPS float64
	Burst      int
}

// Scheduler keeps Ready dashboards live by refreshing them on an interval and
// drops sessions that went idle.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  *store.SessionStore
	metrics   *metrics.Recorder
	interval  time.Duration
	pacer     *rate.Limiter
}

// New creates a new Scheduler.
func New(sessions *store.SessionStore, cfg Config, rec *metrics.Recorder) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	pacer := rate.NewLimiter(rate.Inf, 0)
	if cfg.RefreshRPS > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.RefreshRPS), max(cfg.Burst, 1))
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sessions:  sessions,
		metrics:   rec,
		interval:  interval,
		pacer:     pacer,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().WaitForSchedule().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce evicts idle sessions and refreshes Ready ones at the pacer's rate.
// Refreshes that cannot start before the next run are skipped; those dashboards
// keep what they show.
func (s *Scheduler) RunOnce() {
	evicted := s.sessions.EvictIdle()
	shells := s.sessions.Shells()
	s.metrics.SetActiveSessions(len(shells))
	log.WithFields(log.Fields{"sessions": len(shells), "evicted": evicted}).Info("scheduler: running live feed refresh")

	budget, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	var (
		wg        sync.WaitGroup
		refreshed int
		skipped   int
	)
	for _, sh := range shells {
		if sh.Snapshot().State != dashboard.Ready {
			continue
		}
		if err := s.pacer.Wait(budget); err != nil {
			skipped++
			continue
		}
		refreshed++

		wg.Add(1)
		go func(sh *dashboard.Shell) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()

			if _, err := sh.RefreshLive(ctx); err != nil && !errors.Is(err, dashboard.ErrNotReady) {
				log.WithField("session", sh.ID()).WithError(err).Warn("scheduler: refresh failed, keeping displayed data")
			}
		}(sh)
	}
	wg.Wait()

	s.metrics.ObserveSkippedRefreshes(skipped)
	log.WithFields(log.Fields{"refreshed": refreshed, "skipped": skipped}).Debug("scheduler: completed live feed refresh")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
