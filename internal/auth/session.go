// Package auth resolves bearer tokens issued by the Noteria auth service to
// request actors. Token issuance and password handling live in that service.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"noteria/internal/types"
)

// SessionRepo looks up sessions by token hash.
type SessionRepo interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*types.Session, error)
}

// HashToken produces the hex-encoded SHA-256 hash under which a session
// token is stored.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionAuthenticator resolves a raw bearer token to the owning user.
type SessionAuthenticator struct {
	repo   SessionRepo
	clock  types.Clock
	logger *slog.Logger
}

func NewSessionAuthenticator(repo SessionRepo, clock types.Clock, logger *slog.Logger) *SessionAuthenticator {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAuthenticator{repo: repo, clock: clock, logger: logger}
}

// ResolveToken returns the user actor for token. Unknown tokens yield
// auth_token_invalid and expired sessions auth_session_expired.
func (a *SessionAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	session, err := a.repo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}

	if !a.clock.Now().Before(session.ExpiresAt) {
		a.logger.Info("session expired",
			"session_id", session.ID,
			"expired_at", session.ExpiresAt,
		)
		return nil, types.NewAppError(types.ErrCodeAuthSessionExpired, "session has expired", nil)
	}

	return &types.Actor{
		ID:   session.UserID,
		Type: types.ActorTypeUser,
	}, nil
}
