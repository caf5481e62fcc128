package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"noteria/internal/types"
)

// CategoryRepository provides data access for the categories table.
type CategoryRepository struct {
	db DBTX
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `c.id, c.user_id, c.name, c.color, c.created_at, c.updated_at`

func scanCategory(row pgx.Row) (*types.Category, error) {
	var c types.Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the user's categories ordered by creation time.
func (r *CategoryRepository) List(ctx context.Context, userID string) ([]*types.Category, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+categoryColumns+`
		 FROM categories c
		 WHERE c.user_id = $1
		 ORDER BY c.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list categories", err)
	}
	defer rows.Close()

	results := []*types.Category{}
	for rows.Next() {
		c, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan category row", scanErr)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating category rows", err)
	}
	return results, nil
}

// Exists reports whether the category exists and belongs to userID.
func (r *CategoryRepository) Exists(ctx context.Context, id, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check category", err)
	}
	return exists, nil
}

// Create inserts c and fills its timestamps.
func (r *CategoryRepository) Create(ctx context.Context, c *types.Category) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO categories (id, user_id, name, color)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.Color,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create category", err)
	}
	return nil
}

// Update renames or recolors a category owned by userID and returns the
// stored row.
func (r *CategoryRepository) Update(ctx context.Context, id, userID, name string, color types.CategoryColor) (*types.Category, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE categories c SET name = $3, color = $4, updated_at = NOW()
		 WHERE c.id = $1 AND c.user_id = $2
		 RETURNING `+categoryColumns,
		id, userID, name, color,
	)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundCategory, "category not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to update category", err)
	}
	return c, nil
}

// Delete removes the category. Notes and tasks referencing it are removed by
// the caller first.
func (r *CategoryRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundCategory, "category not found", nil)
	}
	return nil
}
