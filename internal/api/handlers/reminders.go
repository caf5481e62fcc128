package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"noteria/internal/core"
)

// ActiveReminderLister exposes the task IDs with an armed reminder.
type ActiveReminderLister interface {
	ActiveTaskIDs() []string
}

// ReminderHandler serves the reminder diagnostics endpoint.
type ReminderHandler struct {
	reminders ActiveReminderLister
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(reminders ActiveReminderLister) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// RegisterRoutes mounts GET /v1/reminders/active.
func (h *ReminderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reminders/active", h.Active)
}

type activeRemindersResponse struct {
	Count   int      `json:"count"`
	TaskIDs []string `json:"task_ids"`
}

// Active lists every task that currently has a pending email reminder in
// this process.
func (h *ReminderHandler) Active(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	ids := h.reminders.ActiveTaskIDs()
	if ids == nil {
		ids = []string{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: activeRemindersResponse{Count: len(ids), TaskIDs: ids}})
}
