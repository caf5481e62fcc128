package scheduler

import (
	"context"
	"log/slog"
	"time"

	"noteria/internal/types"
)

// Sweeper prunes reminder jobs whose task is gone.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// UserPurger deletes unverified accounts whose verification window closed.
type UserPurger interface {
	PurgeUnverified(ctx context.Context, now time.Time) (int64, error)
}

// ReminderSweepJob wraps the reminder reconciler's sweep.
func ReminderSweepJob(spec string, sweeper Sweeper) Job {
	return Job{
		Name:    "reminder_sweep",
		Spec:    spec,
		Timeout: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := sweeper.Sweep(ctx)
			return err
		},
	}
}

// PurgeUnverifiedJob deletes accounts that never verified their email.
func PurgeUnverifiedJob(spec string, purger UserPurger, clock types.Clock, logger *slog.Logger) Job {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Job{
		Name:    "purge_unverified_users",
		Spec:    spec,
		Timeout: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := purger.PurgeUnverified(ctx, clock.Now())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged unverified users", "count", n)
			}
			return nil
		},
	}
}
