package server

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
)

// RebuildScheduler wraps gocron for the periodic full-rebuild backstop. The
// watcher catches ordinary edits; the scheduled rebuild picks up changes the
// watcher can miss (network mounts, clock-skewed copies).
type RebuildScheduler struct {
	scheduler gocron.Scheduler
}

// NewRebuildScheduler schedules rebuild at the given interval.
func NewRebuildScheduler(interval time.Duration, rebuild func()) (*RebuildScheduler, error) {
	if interval <= 0 {
		return nil, bferrors.ValidationError("rebuild interval must be positive")
	}
	if rebuild == nil {
		return nil, bferrors.ValidationError("rebuild callback is required")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.CategoryServer, bferrors.SeverityFatal, "creating rebuild scheduler")
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(rebuild),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, bferrors.Wrap(err, bferrors.CategoryServer, bferrors.SeverityFatal, "scheduling periodic rebuild")
	}

	return &RebuildScheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (rs *RebuildScheduler) Start() {
	rs.scheduler.Start()
}

// Stop gracefully shuts the scheduler down.
func (rs *RebuildScheduler) Stop() error {
	return rs.scheduler.Shutdown()
}
