package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"noteria/internal/types"
)

// TaskRepository provides data access for the tasks table. Besides the CRUD
// used by the API it serves the reads of the reminder scheduler.
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskColumns must match the scan order in scanTask.
const taskColumns = `t.id, t.user_id, t.category_id, t.title, t.description, t.status, t.priority,
	t.due_date, t.subtasks, t.has_reminder, COALESCE(t.reminder_type, ''), t.reminder_time,
	t.created_at, t.updated_at`

func scanTask(row pgx.Row) (*types.Task, error) {
	var t types.Task
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.CategoryID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.DueDate,
		&t.Subtasks,
		&t.HasReminder,
		&t.ReminderType,
		&t.ReminderTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.Subtasks == nil {
		t.Subtasks = types.SubtaskList{}
	}
	return &t, nil
}

// reminderTypeArg maps the empty reminder type to NULL.
func reminderTypeArg(rt types.ReminderType) any {
	if rt == types.ReminderNone {
		return nil
	}
	return string(rt)
}

// Create inserts t and fills its timestamps from the database.
func (r *TaskRepository) Create(ctx context.Context, t *types.Task) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO tasks (id, user_id, category_id, title, description, status, priority,
			due_date, subtasks, has_reminder, reminder_type, reminder_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.CategoryID, t.Title, t.Description, t.Status, t.Priority,
		t.DueDate, t.Subtasks, t.HasReminder, reminderTypeArg(t.ReminderType), t.ReminderTime,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create task", err)
	}
	return nil
}

// GetByID returns the task with the given ID owned by userID.
func (r *TaskRepository) GetByID(ctx context.Context, id, userID string) (*types.Task, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 WHERE t.id = $1 AND t.user_id = $2`,
		id, userID,
	)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundTask, "task not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve task", err)
	}
	return t, nil
}

// Update persists every mutable field of t and refreshes UpdatedAt.
func (r *TaskRepository) Update(ctx context.Context, t *types.Task) error {
	err := r.db.QueryRow(ctx,
		`UPDATE tasks SET
			category_id = $3, title = $4, description = $5, status = $6, priority = $7,
			due_date = $8, subtasks = $9, has_reminder = $10, reminder_type = $11,
			reminder_time = $12, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at`,
		t.ID, t.UserID, t.CategoryID, t.Title, t.Description, t.Status, t.Priority,
		t.DueDate, t.Subtasks, t.HasReminder, reminderTypeArg(t.ReminderType), t.ReminderTime,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NewAppError(types.ErrCodeNotFoundTask, "task not found", nil)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update task", err)
	}
	return nil
}

// Delete removes the task and returns the deleted row.
func (r *TaskRepository) Delete(ctx context.Context, id, userID string) (*types.Task, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM tasks t
		 WHERE t.id = $1 AND t.user_id = $2
		 RETURNING `+taskColumns,
		id, userID,
	)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundTask, "task not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to delete task", err)
	}
	return t, nil
}

// ListByUser returns all tasks of the user, most recently updated first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]*types.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 WHERE t.user_id = $1
		 ORDER BY t.updated_at DESC`,
		userID,
	)
}

// ListByCategory returns the user's tasks in one category, most recently
// updated first.
func (r *TaskRepository) ListByCategory(ctx context.Context, userID, categoryID string) ([]*types.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 WHERE t.user_id = $1 AND t.category_id = $2
		 ORDER BY t.updated_at DESC`,
		userID, categoryID,
	)
}

// DeleteByCategory removes every task of the user in the category and returns
// the IDs that were deleted.
func (r *TaskRepository) DeleteByCategory(ctx context.Context, userID, categoryID string) ([]string, error) {
	return r.ids(ctx,
		`DELETE FROM tasks
		 WHERE user_id = $1 AND category_id = $2
		 RETURNING id`,
		userID, categoryID,
	)
}

// GetReminderTarget returns the task together with its owner's email address.
// It is not scoped to a user: the scheduler acts on behalf of the system.
func (r *TaskRepository) GetReminderTarget(ctx context.Context, id string) (*types.ReminderTarget, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+taskColumns+`, u.email
		 FROM tasks t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.id = $1`,
		id,
	)

	var (
		t     types.Task
		email string
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.CategoryID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.DueDate,
		&t.Subtasks,
		&t.HasReminder,
		&t.ReminderType,
		&t.ReminderTime,
		&t.CreatedAt,
		&t.UpdatedAt,
		&email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundTask, "task not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve reminder target", err)
	}
	return &types.ReminderTarget{Task: &t, OwnerEmail: email}, nil
}

// ListFutureEmailReminders returns every task whose email reminder lies after
// now. Used to rebuild the in-memory schedule at startup.
func (r *TaskRepository) ListFutureEmailReminders(ctx context.Context, now time.Time) ([]*types.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 WHERE t.has_reminder = TRUE
		   AND t.reminder_type = 'email'
		   AND t.reminder_time > $1
		 ORDER BY t.reminder_time ASC`,
		now,
	)
}

// FilterExisting returns the subset of ids that still exist in the tasks
// table, in a single round trip.
func (r *TaskRepository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	return r.ids(ctx,
		`SELECT id FROM tasks WHERE id = ANY($1)`,
		ids,
	)
}

func (r *TaskRepository) list(ctx context.Context, sql string, args ...any) ([]*types.Task, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list tasks", err)
	}
	defer rows.Close()

	results := []*types.Task{}
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan task row", scanErr)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating task rows", err)
	}
	return results, nil
}

func (r *TaskRepository) ids(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query task ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan task id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating task ids", err)
	}
	return ids, nil
}
