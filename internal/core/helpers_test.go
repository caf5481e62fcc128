package core

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"noteria/internal/config"
	"noteria/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		RateLimit:   config.RateLimitConfig{RequestsPerMinute: 3, Enabled: true},
		Security:    config.SecurityConfig{CorsAllowedOrigins: []string{"*"}},
		Build:       config.BuildInfo{Version: "test"},
	}
}

func newTestServer() *Server {
	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		panic(err)
	}
	return s
}

type stubAuthenticator struct {
	actors map[string]*types.Actor
	errs   map[string]error
}

func (a *stubAuthenticator) ResolveToken(_ context.Context, token string) (*types.Actor, error) {
	if err, ok := a.errs[token]; ok {
		return nil, err
	}
	if actor, ok := a.actors[token]; ok {
		return actor, nil
	}
	return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "session not found", nil)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
