package db

import (
	"context"
	"time"

	"noteria/internal/types"
)

// UserRepository purges abandoned sign-ups. Account creation and reads
// belong to the auth service.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// PurgeUnverified deletes accounts that never verified their address and
// whose verification token expired before now. Owned rows cascade.
func (r *UserRepository) PurgeUnverified(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM users
		 WHERE is_verified = FALSE
		   AND verification_token_expires IS NOT NULL
		   AND verification_token_expires < $1`,
		now,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to purge unverified users", err)
	}
	return tag.RowsAffected(), nil
}
