package types

// TaskStatus represents the completion state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

// Priority ranks a task. The zero value is treated as PriorityMedium on create.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ReminderType selects how a task reminder is delivered. Only ReminderEmail
// is dispatched by the server; notification reminders are shown by the client.
type ReminderType string

const (
	ReminderNone         ReminderType = ""
	ReminderNotification ReminderType = "notification"
	ReminderEmail        ReminderType = "email"
)

// Valid reports whether r is a known reminder type (including none).
func (r ReminderType) Valid() bool {
	switch r {
	case ReminderNone, ReminderNotification, ReminderEmail:
		return true
	}
	return false
}

// CategoryColor is one of the fixed palette values a category may use.
type CategoryColor string

// DefaultCategoryColor is applied when a category is created without a color.
const DefaultCategoryColor CategoryColor = "#e67e22"

// CategoryPalette lists every accepted category color.
var CategoryPalette = []CategoryColor{
	"#e67e22", "#b4b800", "#6ea204", "#1abc9c", "#3498db",
	"#3b82f6", "#a78bfa", "#e879f9", "#e74c3c",
}

// Valid reports whether c is part of CategoryPalette.
func (c CategoryColor) Valid() bool {
	for _, p := range CategoryPalette {
		if c == p {
			return true
		}
	}
	return false
}
