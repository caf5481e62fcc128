package email

import (
	"context"
	"sync"

	"noteria/internal/types"
)

type testLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func newTestLogger() *testLogger { return &testLogger{} }

func (l *testLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *testLogger) With(args ...any) types.Logger { return l }

type fakeProvider struct {
	calls []types.SendInput
	err   error
}

func (f *fakeProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	f.calls = append(f.calls, input)
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}
