package external

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"noteria/internal/types"
)

// StubEmailProvider logs instead of sending. It is used for local
// development and records every message for inspection.
type StubEmailProvider struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []types.SendInput
}

// NewStubEmailProvider creates a new StubEmailProvider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	msgID := "stub-" + uuid.NewString()
	s.logger.InfoContext(ctx, "stub: Send email called",
		"to", input.To,
		"subject", input.Subject,
		"reference_id", input.ReferenceID,
		"message_id", msgID,
	)

	s.mu.Lock()
	s.sent = append(s.sent, input)
	s.mu.Unlock()

	return msgID, nil
}

// Sent returns a copy of every message passed to Send.
func (s *StubEmailProvider) Sent() []types.SendInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.SendInput, len(s.sent))
	copy(out, s.sent)
	return out
}

var _ EmailProvider = (*StubEmailProvider)(nil)
