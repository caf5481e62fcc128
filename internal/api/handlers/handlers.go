// Package handlers contains the HTTP handlers of the Noteria API: categories,
// notes, tasks and the reminder diagnostics endpoint. Every route is scoped
// to the authenticated user.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"noteria/internal/core"
	"noteria/internal/types"
)

// ReminderHooks is the reminder subsystem as seen by the task handlers. The
// calls are made after the corresponding write succeeded and never fail the
// request.
type ReminderHooks interface {
	OnTaskCreated(ctx context.Context, taskID string)
	OnTaskReminderFieldsChanged(ctx context.Context, taskID string)
	OnTaskDeleted(taskID string)
}

// CategoryLookup verifies that a category belongs to a user.
type CategoryLookup interface {
	Exists(ctx context.Context, id, userID string) (bool, error)
}

// requireUser returns the caller's user ID or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, ok := types.GetActor(r.Context())
	if !ok || actor.ID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return "", false
	}
	return actor.ID, true
}

// pathID reads a UUID path parameter. A value that is not a UUID cannot name
// a stored row and is answered with notFound.
func pathID(w http.ResponseWriter, r *http.Request, name string, notFound types.ErrorCode) (string, bool) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		core.Error(w, r, types.NewAppError(notFound, "resource not found", nil))
		return "", false
	}
	return id, true
}

// ensureCategory maps a missing or foreign category to not_found_category.
func ensureCategory(ctx context.Context, categories CategoryLookup, id, userID string) error {
	ok, err := categories.Exists(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundCategory, "category not found", nil)
	}
	return nil
}

// writeError logs server-side failures before writing the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", types.GetRequestID(r.Context()),
			"error", err,
		)
	}
	core.Error(w, r, err)
}
