package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"noteria/internal/types"
)

// NoteRepository provides data access for the notes table.
type NoteRepository struct {
	db DBTX
}

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(db DBTX) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = `n.id, n.user_id, n.category_id, n.title, n.content, n.created_at, n.updated_at`

func scanNote(row pgx.Row) (*types.Note, error) {
	var n types.Note
	if err := row.Scan(&n.ID, &n.UserID, &n.CategoryID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns all notes of the user, most recently updated first.
func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]*types.Note, error) {
	return r.list(ctx,
		`SELECT `+noteColumns+` FROM notes n
		 WHERE n.user_id = $1
		 ORDER BY n.updated_at DESC`,
		userID,
	)
}

// ListByCategory returns the user's notes in one category.
func (r *NoteRepository) ListByCategory(ctx context.Context, userID, categoryID string) ([]*types.Note, error) {
	return r.list(ctx,
		`SELECT `+noteColumns+` FROM notes n
		 WHERE n.user_id = $1 AND n.category_id = $2
		 ORDER BY n.updated_at DESC`,
		userID, categoryID,
	)
}

// GetByID returns a note owned by userID.
func (r *NoteRepository) GetByID(ctx context.Context, id, userID string) (*types.Note, error) {
	n, err := scanNote(r.db.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.id = $1 AND n.user_id = $2`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundNote, "note not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve note", err)
	}
	return n, nil
}

// Create inserts n and fills its timestamps.
func (r *NoteRepository) Create(ctx context.Context, n *types.Note) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO notes (id, user_id, category_id, title, content)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		n.ID, n.UserID, n.CategoryID, n.Title, n.Content,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create note", err)
	}
	return nil
}

// Update persists the mutable fields of n.
func (r *NoteRepository) Update(ctx context.Context, n *types.Note) error {
	err := r.db.QueryRow(ctx,
		`UPDATE notes SET category_id = $3, title = $4, content = $5, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at`,
		n.ID, n.UserID, n.CategoryID, n.Title, n.Content,
	).Scan(&n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NewAppError(types.ErrCodeNotFoundNote, "note not found", nil)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update note", err)
	}
	return nil
}

// Delete removes a note owned by userID.
func (r *NoteRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete note", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundNote, "note not found", nil)
	}
	return nil
}

// DeleteByCategory removes all of the user's notes in the category and
// returns how many were deleted.
func (r *NoteRepository) DeleteByCategory(ctx context.Context, userID, categoryID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notes WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete notes in category", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NoteRepository) list(ctx context.Context, sql string, args ...any) ([]*types.Note, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list notes", err)
	}
	defer rows.Close()

	results := []*types.Note{}
	for rows.Next() {
		n, scanErr := scanNote(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan note row", scanErr)
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating note rows", err)
	}
	return results, nil
}
