// Package reminder arms one in-process timer per task carrying a future
// email reminder and dispatches the email when it expires. Jobs are never
// persisted; Reconciler rebuilds them at boot and prunes them hourly.
package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"noteria/internal/notifications/core"
	"noteria/internal/notifications/email"
	"noteria/internal/types"
)

// TaskStore is the read side of the task repository used by the scheduler.
type TaskStore interface {
	// GetReminderTarget returns the task joined with its owner's address.
	// A missing task yields an error for which types.IsNotFound is true.
	GetReminderTarget(ctx context.Context, taskID string) (*types.ReminderTarget, error)
	ListFutureEmailReminders(ctx context.Context, now time.Time) ([]*types.Task, error)
	FilterExisting(ctx context.Context, ids []string) ([]string, error)
}

// Notifier sends one reminder email.
type Notifier interface {
	Send(ctx context.Context, to string, task *types.Task) error
}

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Store       TaskStore
	Notifier    Notifier
	Clock       Clock
	Metrics     core.ReminderMetrics
	Logger      types.Logger
	HookTimeout time.Duration
}

const defaultHookTimeout = 5 * time.Second

// Service schedules, cancels and dispatches task reminders.
type Service struct {
	store       TaskStore
	notifier    Notifier
	registry    *Registry
	clock       Clock
	metrics     core.ReminderMetrics
	logger      types.Logger
	hookTimeout time.Duration

	// lifetime bounds every dispatch; it is cancelled only when Stop gives
	// up waiting.
	lifetime context.Context
	abort    context.CancelFunc
	stopOnce sync.Once
}

func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NoopReminderMetrics{}
	}
	hookTimeout := cfg.HookTimeout
	if hookTimeout <= 0 {
		hookTimeout = defaultHookTimeout
	}

	lifetime, abort := context.WithCancel(context.Background())
	return &Service{
		store:       cfg.Store,
		notifier:    cfg.Notifier,
		registry:    NewRegistry(clock),
		clock:       clock,
		metrics:     metrics,
		logger:      cfg.Logger,
		hookTimeout: hookTimeout,
		lifetime:    lifetime,
		abort:       abort,
	}
}

// Schedule reads the task and arms, replaces or clears its job to match.
// A task that is gone, has no email reminder, or whose reminder has already
// passed ends up with no job. If the task is cancelled or scheduled again
// while the read is in flight, this call leaves the job alone.
func (s *Service) Schedule(ctx context.Context, taskID string) error {
	token, done := s.registry.Observe(taskID)
	defer done()

	target, err := s.store.GetReminderTarget(ctx, taskID)
	if err != nil {
		if types.IsNotFound(err) {
			if s.registry.ClearObserved(taskID, token) {
				s.logger.Info("reminder cancelled", "task_id", taskID)
			}
			return nil
		}
		return err
	}
	s.scheduleTask(target.Task, token)
	return nil
}

// scheduleTask applies the arming rules to an already loaded task read under
// token. It reports whether a job was armed.
func (s *Service) scheduleTask(task *types.Task, token uint64) bool {
	if !task.WantsEmailReminder() {
		s.registry.ClearObserved(task.ID, token)
		return false
	}

	now := s.clock.Now()
	if !task.ReminderTime.After(now) {
		s.registry.ClearObserved(task.ID, token)
		s.logger.Info("reminder skipped: time already passed",
			"task_id", task.ID,
			"reminder_time", task.ReminderTime.UTC(),
		)
		return false
	}

	at := *task.ReminderTime
	err := s.registry.ArmObserved(task.ID, token, at, func(armedAt time.Time) { s.fire(task.ID, armedAt) })
	switch {
	case errors.Is(err, ErrRegistryStopped):
		s.logger.Warn("reminder not armed: scheduler stopped", "task_id", task.ID)
		return false
	case errors.Is(err, ErrObservationSuperseded):
		s.logger.Info("reminder not armed: task changed during read", "task_id", task.ID)
		return false
	}
	s.logger.Info("reminder scheduled",
		"task_id", task.ID,
		"reminder_time", at.UTC(),
		"in", at.Sub(now).String(),
	)
	return true
}

// Cancel removes the task's job, if any. Safe to call repeatedly.
func (s *Service) Cancel(taskID string) {
	if s.registry.Cancel(taskID) {
		s.logger.Info("reminder cancelled", "task_id", taskID)
	}
}

// Reschedule is Cancel followed by Schedule.
func (s *Service) Reschedule(ctx context.Context, taskID string) error {
	s.Cancel(taskID)
	return s.Schedule(ctx, taskID)
}

// ActiveTaskIDs lists the tasks that currently have a pending reminder.
func (s *Service) ActiveTaskIDs() []string {
	return s.registry.IDs()
}

// fire runs after the registry handed the expired job to this callback.
// Display fields and the recipient are read fresh; nothing is retried.
func (s *Service) fire(taskID string, armedAt time.Time) {
	ctx := s.lifetime
	log := s.logger.With("task_id", taskID)

	token, done := s.registry.Observe(taskID)
	defer done()

	target, err := s.store.GetReminderTarget(ctx, taskID)
	if err != nil {
		if types.IsNotFound(err) {
			log.Info("reminder dropped: task no longer exists")
			s.metrics.RecordDropped(ctx, core.ReasonTaskMissing)
			return
		}
		log.Error("reminder dropped: task read failed", "error", err.Error())
		s.metrics.RecordFailed(ctx, core.ReasonStoreError)
		return
	}

	task := target.Task
	if !task.WantsEmailReminder() {
		log.Info("reminder dropped: task no longer has an email reminder")
		s.metrics.RecordDropped(ctx, core.ReasonNotEligible)
		return
	}

	if task.ReminderTime.After(armedAt) {
		log.Info("reminder moved later; re-arming", "reminder_time", task.ReminderTime.UTC())
		s.scheduleTask(task, token)
		return
	}

	if target.OwnerEmail == "" {
		log.Warn("reminder dropped: owner has no email address")
		s.metrics.RecordDropped(ctx, core.ReasonNoRecipient)
		return
	}

	if err := s.notifier.Send(ctx, target.OwnerEmail, task); err != nil {
		reason := core.ReasonSendFailed
		if email.IsBlocklistError(err) {
			reason = core.ReasonBlocked
		}
		log.Error("reminder dispatch failed", "reason", reason, "error", err.Error())
		s.metrics.RecordFailed(ctx, reason)
		return
	}

	log.Info("reminder dispatched", "dest", email.RedactEmail(target.OwnerEmail))
	s.metrics.RecordSent(ctx, s.clock.Now().Sub(*task.ReminderTime))
}

// Stop disarms all pending reminders and waits for in-flight dispatches.
// If ctx expires first the dispatches are cancelled and ctx's error is
// returned.
func (s *Service) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.registry.Stop()

		done := make(chan struct{})
		go func() {
			s.registry.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			s.abort()
			<-done
			err = ctx.Err()
		}
		s.abort()
	})
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("reminder shutdown timed out; in-flight sends cancelled")
	}
	return err
}
