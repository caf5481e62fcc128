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

// NoteRepo is the data access the note handler needs.
type NoteRepo interface {
	ListByUser(ctx context.Context, userID string) ([]*types.Note, error)
	ListByCategory(ctx context.Context, userID, categoryID string) ([]*types.Note, error)
	GetByID(ctx context.Context, id, userID string) (*types.Note, error)
	Create(ctx context.Context, n *types.Note) error
	Update(ctx context.Context, n *types.Note) error
	Delete(ctx context.Context, id, userID string) error
	DeleteByCategory(ctx context.Context, userID, categoryID string) (int64, error)
}

// CreateNoteRequest is the body of POST /v1/notes.
type CreateNoteRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Content    string `json:"content" validate:"max=100000"`
	CategoryID string `json:"category_id" validate:"required,uuid"`
}

// UpdateNoteRequest is the body of PUT /v1/notes/{id}. Absent fields keep
// their stored value.
type UpdateNoteRequest struct {
	Title      *string `json:"title" validate:"omitnil,min=1,max=200"`
	Content    *string `json:"content" validate:"omitnil,max=100000"`
	CategoryID *string `json:"category_id" validate:"omitnil,uuid"`
}

// NoteHandler serves /v1/notes.
type NoteHandler struct {
	repo       NoteRepo
	categories CategoryLookup
	validator  *core.Validator
	logger     *slog.Logger
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(repo NoteRepo, categories CategoryLookup, v *core.Validator, l *slog.Logger) *NoteHandler {
	if l == nil {
		l = slog.Default()
	}
	return &NoteHandler{repo: repo, categories: categories, validator: v, logger: l}
}

// RegisterRoutes mounts the note routes.
func (h *NoteHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/category/{categoryId}", h.ListByCategory)
		r.Delete("/category/{categoryId}", h.DeleteByCategory)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /v1/notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notes, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: notes})
}

// ListByCategory handles GET /v1/notes/category/{categoryId}.
func (h *NoteHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r, "categoryId", types.ErrCodeNotFoundCategory)
	if !ok {
		return
	}
	notes, err := h.repo.ListByCategory(r.Context(), userID, categoryID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: notes})
}

// Create handles POST /v1/notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateNoteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := ensureCategory(r.Context(), h.categories, req.CategoryID, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	n := &types.Note{
		ID:         uuid.NewString(),
		UserID:     userID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
	}
	if err := h.repo.Create(r.Context(), n); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: n})
}

// Update handles PUT /v1/notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	id, ok := pathID(w, r, "id", types.ErrCodeNotFoundNote)
	if !ok {
		return
	}
	n, err := h.repo.GetByID(r.Context(), id, userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if req.CategoryID != nil && *req.CategoryID != n.CategoryID {
		if err := ensureCategory(r.Context(), h.categories, *req.CategoryID, userID); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		n.CategoryID = *req.CategoryID
	}
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Content != nil {
		n.Content = *req.Content
	}

	if err := h.repo.Update(r.Context(), n); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: n})
}

// Delete handles DELETE /v1/notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", types.ErrCodeNotFoundNote)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteByCategory handles DELETE /v1/notes/category/{categoryId}.
func (h *NoteHandler) DeleteByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r, "categoryId", types.ErrCodeNotFoundCategory)
	if !ok {
		return
	}
	n, err := h.repo.DeleteByCategory(r.Context(), userID, categoryID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]int64{"deleted": n}})
}
