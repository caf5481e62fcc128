// Package scheduler runs Noteria's periodic maintenance jobs on an
// in-process cron: the hourly reminder sweep and the nightly purge of
// unverified accounts.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one periodic task.
type Job struct {
	Name    string
	Spec    string        // standard 5-field cron spec or descriptor such as "@hourly"
	Timeout time.Duration // zero means no per-run deadline
	Run     func(ctx context.Context) error
}

// Maintenance owns the cron instance. Runs of the same job never overlap
// and a panicking job is recovered and logged.
type Maintenance struct {
	cron   *cron.Cron
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMaintenance creates a scheduler evaluating specs in loc (UTC when nil).
func NewMaintenance(loc *time.Location, logger *slog.Logger) *Maintenance {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Maintenance{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job. The spec is parsed with the standard cron parser.
func (m *Maintenance) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("scheduler: job %q has no Run func", job.Name)
	}
	_, err := m.cron.AddFunc(job.Spec, func() { m.run(job) })
	if err != nil {
		return fmt.Errorf("scheduler: invalid spec %q for job %q: %w", job.Spec, job.Name, err)
	}
	m.logger.Info("maintenance job registered", "job", job.Name, "spec", job.Spec)
	return nil
}

func (m *Maintenance) run(job Job) {
	ctx := m.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		m.logger.Error("maintenance job failed",
			"job", job.Name,
			"duration", time.Since(start).String(),
			"error", err.Error(),
		)
		return
	}
	m.logger.Info("maintenance job completed", "job", job.Name, "duration", time.Since(start).String())
}

// Start begins scheduling in a background goroutine.
func (m *Maintenance) Start() {
	m.cron.Start()
}

// Stop halts scheduling and waits for running jobs. When ctx ends first the
// running jobs' contexts are cancelled and ctx's error returned.
func (m *Maintenance) Stop(ctx context.Context) error {
	done := m.cron.Stop()
	select {
	case <-done.Done():
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
