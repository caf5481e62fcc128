package reminder

import "context"

// Task mutation hooks. The HTTP handlers call these after the write has been
// committed. They detach from request cancellation, bound themselves with
// the hook timeout, and log instead of returning errors so a scheduling
// problem never fails the request.

// OnTaskCreated arms a reminder for a newly created task if it needs one.
func (s *Service) OnTaskCreated(ctx context.Context, taskID string) {
	s.runHook(ctx, "created", taskID, s.Schedule)
}

// OnTaskReminderFieldsChanged re-derives the job after any of has_reminder,
// reminder_type or reminder_time changed.
func (s *Service) OnTaskReminderFieldsChanged(ctx context.Context, taskID string) {
	s.runHook(ctx, "reminder_changed", taskID, s.Reschedule)
}

// OnTaskDeleted drops the task's job.
func (s *Service) OnTaskDeleted(taskID string) {
	s.Cancel(taskID)
}

func (s *Service) runHook(ctx context.Context, event, taskID string, fn func(context.Context, string) error) {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.hookTimeout)
	defer cancel()

	if err := fn(hctx, taskID); err != nil {
		s.logger.Error("reminder hook failed",
			"event", event,
			"task_id", taskID,
			"error", err.Error(),
		)
	}
}
