package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"noteria/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// ReminderSubject is the subject line of every task reminder email.
const ReminderSubject = "Noteria Task Reminder"

const dueDateLayout = "Mon, Jan 2 2006 at 3:04 PM MST"

// priorityColors maps a task priority to the accent used in the HTML body.
var priorityColors = map[types.Priority]string{
	types.PriorityHigh:   "#dc3545",
	types.PriorityMedium: "#ffc107",
	types.PriorityLow:    "#28a745",
}

const fallbackPriorityColor = "#666"

// RenderedEmail holds the pre-rendered email content ready for transmission.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

type reminderData struct {
	Title         string
	Description   string
	Priority      string
	PriorityColor string
	DueDate       string
	Subtasks      []types.Subtask
}

// Renderer renders task reminders from the embedded templates.
type Renderer struct {
	html     *template.Template
	text     *texttemplate.Template
	location *time.Location
}

// NewRenderer parses the embedded templates. Due dates are rendered in loc;
// a nil loc means UTC.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}

	html, err := template.ParseFS(templateFS, "templates/task_reminder.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse task_reminder.html: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/task_reminder.txt")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse task_reminder.txt: %w", err)
	}

	return &Renderer{html: html, text: text, location: loc}, nil
}

// Render produces the subject and both bodies for task.
func (r *Renderer) Render(task *types.Task) (*RenderedEmail, error) {
	if task == nil {
		return nil, fmt.Errorf("renderer: task is nil")
	}

	data := reminderData{
		Title:         task.Title,
		Description:   task.Description,
		Priority:      strings.ToUpper(string(task.Priority)),
		PriorityColor: priorityColor(task.Priority),
		Subtasks:      task.Subtasks,
	}
	if task.DueDate != nil {
		data.DueDate = task.DueDate.In(r.location).Format(dueDateLayout)
	}

	var htmlBuf, txtBuf bytes.Buffer
	if err := r.html.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("renderer: failed to render HTML: %w", err)
	}
	if err := r.text.Execute(&txtBuf, data); err != nil {
		return nil, fmt.Errorf("renderer: failed to render text: %w", err)
	}

	return &RenderedEmail{
		Subject:  ReminderSubject,
		BodyHTML: htmlBuf.String(),
		BodyText: txtBuf.String(),
	}, nil
}

func priorityColor(p types.Priority) string {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return fallbackPriorityColor
}
