package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PointPurger deletes expired live location points
type PointPurger interface {
	PurgeExpiredPoints(ctx context.Context, retention time.Duration) (int64, error)
}

// ThrottlePruner drops idle throttle keys
type ThrottlePruner interface {
	Prune(now time.Time) int
}

// LivePointCleanupJob periodically purges expired live location points and
// idle throttle state
type LivePointCleanupJob struct {
	purger    PointPurger
	throttle  ThrottlePruner
	retention time.Duration
	interval  time.Duration
	timeout   time.Duration
	done      chan struct{}
	stopped   sync.WaitGroup
	once      sync.Once
}

// NewLivePointCleanupJob creates a new cleanup job. throttle may be nil.
func NewLivePointCleanupJob(purger PointPurger, throttle ThrottlePruner, retention, interval, timeout time.Duration) *LivePointCleanupJob {
	return &LivePointCleanupJob{
		purger:    purger,
		throttle:  throttle,
		retention: retention,
		interval:  interval,
		timeout:   timeout,
		done:      make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every interval
func (j *LivePointCleanupJob) Start() {
	log.Info().
		Dur("interval", j.interval).
		Dur("retention", j.retention).
		Msg("Live point cleanup job started")

	j.stopped.Add(1)
	go func() {
		defer j.stopped.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.RunOnce()

		for {
			select {
			case <-ticker.C:
				j.RunOnce()
			case <-j.done:
				log.Info().Msg("Live point cleanup job stopped")
				return
			}
		}
	}()
}

// Stop halts the job and waits for a running sweep to finish
func (j *LivePointCleanupJob) Stop() {
	j.once.Do(func() { close(j.done) })
	j.stopped.Wait()
}

// RunOnce performs a single sweep
func (j *LivePointCleanupJob) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	deleted, err := j.purger.PurgeExpiredPoints(ctx, j.retention)
	if err != nil {
		log.Error().Err(err).Msg("Live point cleanup failed")
	} else {
		log.Info().Int64("deleted", deleted).Msg("Live point cleanup completed")
	}

	if j.throttle != nil {
		pruned := j.throttle.Prune(time.Now())
		log.Debug().Int("pruned", pruned).Msg("Pruned idle throttle keys")
	}
}
