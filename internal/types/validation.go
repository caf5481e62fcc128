package types

import (
	"fmt"
	"time"
)

// Field length limits enforced on create and update.
const (
	MaxTitleLength        = 200
	MaxCategoryNameLength = 100
	MaxDescriptionLength  = 5000
	MaxSubtasks           = 50
)

// ValidateReminder checks that an enabled reminder has a known type and, for
// the email type, an instant. A past instant is accepted; the scheduler skips
// it without error.
func ValidateReminder(hasReminder bool, rt ReminderType, at *time.Time) error {
	if !rt.Valid() {
		return NewAppError(ErrCodeValidationInvalidEnum, fmt.Sprintf("unknown reminder type %q", rt), nil)
	}
	if !hasReminder {
		return nil
	}
	if rt == ReminderEmail && at == nil {
		return NewAppError(ErrCodeValidationReminderConfig, "email reminder requires reminder_time", nil)
	}
	return nil
}

// ValidateSubtasks enforces the checklist size and non-empty titles.
func ValidateSubtasks(items SubtaskList) error {
	if len(items) > MaxSubtasks {
		return NewAppError(ErrCodeValidationInvalidField, fmt.Sprintf("at most %d subtasks allowed", MaxSubtasks), nil)
	}
	for i, st := range items {
		if st.Title == "" {
			return NewAppError(ErrCodeValidationMissingField, fmt.Sprintf("subtask %d has an empty title", i), nil)
		}
		if len(st.Title) > MaxTitleLength {
			return NewAppError(ErrCodeValidationTitleTooLong, fmt.Sprintf("subtask %d title exceeds %d characters", i, MaxTitleLength), nil)
		}
	}
	return nil
}
