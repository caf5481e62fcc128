package types

import "time"

// Session is an issued bearer session. The raw token is never stored; only
// its SHA-256 hash.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Category groups notes and tasks for a single user.
type Category struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Color     CategoryColor `json:"color"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Note is a free-text entry within a category.
type Note struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CategoryID string    `json:"category_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Subtask is one checklist item of a task.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// SubtaskList is stored as a JSONB array on the tasks row.
type SubtaskList []Subtask

// Task is a to-do item. The reminder fields drive the email reminder
// subsystem; display fields are read again when a reminder fires.
type Task struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	CategoryID   string       `json:"category_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	Priority     Priority     `json:"priority"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	Subtasks     SubtaskList  `json:"subtasks"`
	HasReminder  bool         `json:"has_reminder"`
	ReminderType ReminderType `json:"reminder_type,omitempty"`
	ReminderTime *time.Time   `json:"reminder_time,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// WantsEmailReminder reports whether the task is configured for an email
// reminder, irrespective of whether the reminder instant has passed.
func (t *Task) WantsEmailReminder() bool {
	return t != nil && t.HasReminder && t.ReminderType == ReminderEmail && t.ReminderTime != nil
}

// EmailReminderDue reports whether the task carries an email reminder that
// lies strictly after now.
func (t *Task) EmailReminderDue(now time.Time) bool {
	return t.WantsEmailReminder() && t.ReminderTime.After(now)
}

// ReminderFields is the subset of a task that determines its reminder
// schedule. Comparing two snapshots tells whether a reschedule is needed.
type ReminderFields struct {
	HasReminder  bool
	ReminderType ReminderType
	ReminderTime *time.Time
}

// ReminderFieldsOf captures the reminder-relevant fields of t.
func ReminderFieldsOf(t *Task) ReminderFields {
	return ReminderFields{
		HasReminder:  t.HasReminder,
		ReminderType: t.ReminderType,
		ReminderTime: t.ReminderTime,
	}
}

// Equal compares two snapshots; reminder instants are compared with
// time.Time.Equal so a location change alone is not a difference.
func (f ReminderFields) Equal(o ReminderFields) bool {
	if f.HasReminder != o.HasReminder || f.ReminderType != o.ReminderType {
		return false
	}
	if f.ReminderTime == nil || o.ReminderTime == nil {
		return f.ReminderTime == nil && o.ReminderTime == nil
	}
	return f.ReminderTime.Equal(*o.ReminderTime)
}

// ReminderTarget is a task together with the address its reminder goes to.
type ReminderTarget struct {
	Task       *Task
	OwnerEmail string
}

// SendInput carries one pre-rendered email to an EmailProvider.
type SendInput struct {
	To          string
	From        SenderIdentity
	Subject     string
	BodyHTML    string
	BodyText    string
	ReferenceID string
}

// SenderIdentity defines the sender for outgoing emails.
type SenderIdentity struct {
	Name    string
	Address string
}
