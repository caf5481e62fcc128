package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maintenanceTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type stubSweeper struct {
	removed int
	err     error
	calls   int
}

func (s *stubSweeper) Sweep(context.Context) (int, error) {
	s.calls++
	return s.removed, s.err
}

type stubPurger struct {
	n   int64
	err error
	at  time.Time
}

func (p *stubPurger) PurgeUnverified(_ context.Context, now time.Time) (int64, error) {
	p.at = now
	return p.n, p.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestMaintenance_AddRejectsBadSpec(t *testing.T) {
	m := NewMaintenance(nil, maintenanceTestLogger())

	err := m.Add(Job{Name: "bad", Spec: "every tuesday", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestMaintenance_AddRejectsMissingRun(t *testing.T) {
	m := NewMaintenance(nil, maintenanceTestLogger())
	assert.Error(t, m.Add(Job{Name: "empty", Spec: "@hourly"}))
}

func TestMaintenance_AddAcceptsStandardSpecs(t *testing.T) {
	m := NewMaintenance(time.UTC, maintenanceTestLogger())
	noop := func(context.Context) error { return nil }

	require.NoError(t, m.Add(Job{Name: "sweep", Spec: "@hourly", Run: noop}))
	require.NoError(t, m.Add(Job{Name: "purge", Spec: "0 0 * * *", Run: noop}))
	assert.Len(t, m.cron.Entries(), 2)
}

func TestMaintenance_RunAppliesTimeout(t *testing.T) {
	m := NewMaintenance(nil, maintenanceTestLogger())

	var hadDeadline bool
	m.run(Job{Name: "bounded", Timeout: time.Minute, Run: func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return errors.New("logged, not propagated")
	}})
	assert.True(t, hadDeadline)
}

func TestMaintenance_StopCancelsJobContext(t *testing.T) {
	m := NewMaintenance(nil, maintenanceTestLogger())
	m.Start()
	require.NoError(t, m.Stop(context.Background()))

	var ctxErr error
	m.run(Job{Name: "late", Run: func(ctx context.Context) error {
		ctxErr = ctx.Err()
		return nil
	}})
	assert.ErrorIs(t, ctxErr, context.Canceled)
}

func TestReminderSweepJob(t *testing.T) {
	s := &stubSweeper{removed: 3}
	job := ReminderSweepJob("@hourly", s)

	assert.Equal(t, "reminder_sweep", job.Name)
	assert.Equal(t, "@hourly", job.Spec)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, s.calls)

	s.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}

func TestPurgeUnverifiedJob(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	p := &stubPurger{n: 2}
	job := PurgeUnverifiedJob("0 0 * * *", p, fixedClock{now}, maintenanceTestLogger())

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, p.at.Equal(now))

	p.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}
