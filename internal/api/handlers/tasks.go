package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"noteria/internal/core"
	"noteria/internal/types"
)

// TaskRepo is the data access the task handler needs.
type TaskRepo interface {
	ListByUser(ctx context.Context, userID string) ([]*types.Task, error)
	ListByCategory(ctx context.Context, userID, categoryID string) ([]*types.Task, error)
	GetByID(ctx context.Context, id, userID string) (*types.Task, error)
	Create(ctx context.Context, t *types.Task) error
	Update(ctx context.Context, t *types.Task) error
	Delete(ctx context.Context, id, userID string) (*types.Task, error)
	DeleteByCategory(ctx context.Context, userID, categoryID string) ([]string, error)
}

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	Title        string             `json:"title" validate:"required,max=200"`
	Description  string             `json:"description" validate:"max=5000"`
	CategoryID   string             `json:"category_id" validate:"required,uuid"`
	Status       types.TaskStatus   `json:"status" validate:"omitempty,task_status"`
	Priority     types.Priority     `json:"priority" validate:"omitempty,task_priority"`
	DueDate      *time.Time         `json:"due_date"`
	Subtasks     types.SubtaskList  `json:"subtasks"`
	HasReminder  bool               `json:"has_reminder"`
	ReminderType types.ReminderType `json:"reminder_type" validate:"omitempty,reminder_type"`
	ReminderTime *time.Time         `json:"reminder_time"`
}

// UpdateTaskRequest is the body of PUT /v1/tasks/{id}. Absent fields keep
// their stored value; due_date and reminder_time may be cleared with null.
type UpdateTaskRequest struct {
	Title        *string             `json:"title" validate:"omitnil,min=1,max=200"`
	Description  *string             `json:"description" validate:"omitnil,max=5000"`
	CategoryID   *string             `json:"category_id" validate:"omitnil,uuid"`
	Status       *types.TaskStatus   `json:"status" validate:"omitnil,task_status"`
	Priority     *types.Priority     `json:"priority" validate:"omitnil,task_priority"`
	DueDate      NullableTime        `json:"due_date"`
	Subtasks     *types.SubtaskList  `json:"subtasks"`
	HasReminder  *bool               `json:"has_reminder"`
	ReminderType *types.ReminderType `json:"reminder_type" validate:"omitnil,reminder_type"`
	ReminderTime NullableTime        `json:"reminder_time"`
}

// NullableTime tells an absent JSON field apart from an explicit null.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked when the
// field is present in the body.
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

// TaskHandler serves /v1/tasks and calls the reminder hooks after each
// mutation that affects a task's reminder.
type TaskHandler struct {
	repo       TaskRepo
	categories CategoryLookup
	hooks      ReminderHooks
	validator  *core.Validator
	logger     *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(repo TaskRepo, categories CategoryLookup, hooks ReminderHooks, v *core.Validator, l *slog.Logger) *TaskHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TaskHandler{
		repo:       repo,
		categories: categories,
		hooks:      hooks,
		validator:  v,
		logger:     l,
	}
}

// RegisterRoutes mounts the task routes.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/category/{categoryId}", h.ListByCategory)
		r.Delete("/category/{categoryId}", h.DeleteByCategory)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /v1/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tasks, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: tasks})
}

// ListByCategory handles GET /v1/tasks/category/{categoryId}.
func (h *TaskHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r, "categoryId", types.ErrCodeNotFoundCategory)
	if !ok {
		return
	}
	tasks, err := h.repo.ListByCategory(r.Context(), userID, categoryID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: tasks})
}

// Create handles POST /v1/tasks.
//
//  1. Decode and validate the body, subtasks and reminder configuration.
//  2. Check the category belongs to the caller.
//  3. Apply defaults (status pending, priority medium) and persist.
//  4. Arm the reminder when the task asks for an email reminder.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := types.ValidateSubtasks(req.Subtasks); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := types.ValidateReminder(req.HasReminder, req.ReminderType, req.ReminderTime); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := ensureCategory(r.Context(), h.categories, req.CategoryID, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status := req.Status
	if status == "" {
		status = types.TaskStatusPending
	}
	priority := req.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	subtasks := req.Subtasks
	if subtasks == nil {
		subtasks = types.SubtaskList{}
	}

	task := &types.Task{
		ID:           uuid.NewString(),
		UserID:       userID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       status,
		Priority:     priority,
		DueDate:      req.DueDate,
		Subtasks:     subtasks,
		HasReminder:  req.HasReminder,
		ReminderType: req.ReminderType,
		ReminderTime: req.ReminderTime,
	}
	if err := h.repo.Create(r.Context(), task); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if task.WantsEmailReminder() {
		h.hooks.OnTaskCreated(r.Context(), task.ID)
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: task})
}

// Update handles PUT /v1/tasks/{id}. The reminder is re-derived only when
// has_reminder, reminder_type or reminder_time changed.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	id, ok := pathID(w, r, "id", types.ErrCodeNotFoundTask)
	if !ok {
		return
	}
	task, err := h.repo.GetByID(r.Context(), id, userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	before := types.ReminderFieldsOf(task)

	if req.CategoryID != nil && *req.CategoryID != task.CategoryID {
		if err := ensureCategory(r.Context(), h.categories, *req.CategoryID, userID); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		task.CategoryID = *req.CategoryID
	}
	applyTaskUpdate(task, &req)

	if err := types.ValidateSubtasks(task.Subtasks); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := types.ValidateReminder(task.HasReminder, task.ReminderType, task.ReminderTime); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.repo.Update(r.Context(), task); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if !before.Equal(types.ReminderFieldsOf(task)) {
		h.hooks.OnTaskReminderFieldsChanged(r.Context(), task.ID)
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: task})
}

func applyTaskUpdate(task *types.Task, req *UpdateTaskRequest) {
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate.Set {
		task.DueDate = req.DueDate.Value
	}
	if req.Subtasks != nil {
		task.Subtasks = *req.Subtasks
		if task.Subtasks == nil {
			task.Subtasks = types.SubtaskList{}
		}
	}
	if req.HasReminder != nil {
		task.HasReminder = *req.HasReminder
	}
	if req.ReminderType != nil {
		task.ReminderType = *req.ReminderType
	}
	if req.ReminderTime.Set {
		task.ReminderTime = req.ReminderTime.Value
	}
}

// Delete handles DELETE /v1/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r, "id", types.ErrCodeNotFoundTask)
	if !ok {
		return
	}
	task, err := h.repo.Delete(r.Context(), id, userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.hooks.OnTaskDeleted(task.ID)

	w.WriteHeader(http.StatusNoContent)
}

// DeleteByCategory handles DELETE /v1/tasks/category/{categoryId}. Every
// deleted task has its reminder cancelled.
func (h *TaskHandler) DeleteByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	categoryID, ok := pathID(w, r, "categoryId", types.ErrCodeNotFoundCategory)
	if !ok {
		return
	}
	ids, err := h.repo.DeleteByCategory(r.Context(), userID, categoryID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	for _, id := range ids {
		h.hooks.OnTaskDeleted(id)
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]int{"deleted": len(ids)}})
}
