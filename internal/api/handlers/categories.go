package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"noteria/internal/core"
	"noteria/internal/types"
)

// CategoryRepo is the data access the category handler needs.
type CategoryRepo interface {
	CategoryLookup
	List(ctx context.Context, userID string) ([]*types.Category, error)
	Create(ctx context.Context, c *types.Category) error
	Update(ctx context.Context, id, userID, name string, color types.CategoryColor) (*types.Category, error)
	Delete(ctx context.Context, id, userID string) error
}

// TaskCategoryDeleter removes a category's tasks and returns their IDs.
type TaskCategoryDeleter interface {
	DeleteByCategory(ctx context.Context, userID, categoryID string) ([]string, error)
}

// NoteCategoryDeleter removes a category's notes.
type NoteCategoryDeleter interface {
	DeleteByCategory(ctx context.Context, userID, categoryID string) (int64, error)
}

// CategoryRequest is the body of POST and PUT /v1/categories.
type CategoryRequest struct {
	Name  string              `json:"name" validate:"required,max=100"`
	Color types.CategoryColor `json:"color" validate:"omitempty,category_color"`
}

// CategoryHandler serves /v1/categories.
type CategoryHandler struct {
	repo      CategoryRepo
	tasks     TaskCategoryDeleter
	notes     NoteCategoryDeleter
	hooks     ReminderHooks
	validator *core.Validator
	logger    *slog.Logger
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(
	repo CategoryRepo,
	tasks TaskCategoryDeleter,
	notes NoteCategoryDeleter,
	hooks ReminderHooks,
	v *core.Validator,
	l *slog.Logger,
) *CategoryHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CategoryHandler{
		repo:      repo,
		tasks:     tasks,
		notes:     notes,
		hooks:     hooks,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the category routes.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /v1/categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	categories, err := h.repo.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: categories})
}

// Create handles POST /v1/categories. A missing color defaults to the first
// palette entry.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	color := req.Color
	if color == "" {
		color = types.DefaultCategoryColor
	}

	c := &types.Category{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   req.Name,
		Color:  color,
	}
	if err := h.repo.Create(r.Context(), c); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: c})
}

// Update handles PUT /v1/categories/{id}.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	color := req.Color
	if color == "" {
		color = types.DefaultCategoryColor
	}

	id, ok := pathID(w, r, "id", types.ErrCodeNotFoundCategory)
	if !ok {
		return
	}
	c, err := h.repo.Update(r.Context(), id, userID, req.Name, color)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: c})
}

// Delete handles DELETE /v1/categories/{id}. The category's tasks are
// deleted and their reminders cancelled, then its notes, then the category.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", types.ErrCodeNotFoundCategory)
	if !ok {
		return
	}

	if err := ensureCategory(r.Context(), h.repo, id, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	taskIDs, err := h.tasks.DeleteByCategory(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	for _, taskID := range taskIDs {
		h.hooks.OnTaskDeleted(taskID)
	}

	if _, err := h.notes.DeleteByCategory(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.repo.Delete(r.Context(), id, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "category deleted",
		"category_id", id,
		"tasks_deleted", len(taskIDs),
	)
	w.WriteHeader(http.StatusNoContent)
}
