package email

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"noteria/internal/types"
)

func newTestNotifier(t *testing.T, p *fakeProvider, l *testLogger) *ReminderNotifier {
	t.Helper()
	return NewReminderNotifier(ReminderNotifierConfig{
		Provider: p,
		Renderer: mustRenderer(t),
		Sender:   types.SenderIdentity{Name: "Noteria", Address: "reminders@noteria.app"},
		Logger:   l,
	})
}

func TestReminderNotifier_Send(t *testing.T) {
	p := &fakeProvider{}
	l := newTestLogger()
	n := newTestNotifier(t, p, l)

	err := n.Send(context.Background(), "owner@example.com", &types.Task{ID: "task-1", Title: "Pay rent", Priority: types.PriorityHigh})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if len(p.calls) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(p.calls))
	}
	got := p.calls[0]
	if got.To != "owner@example.com" || got.ReferenceID != "task-1" {
		t.Errorf("unexpected send input: %+v", got)
	}
	if got.From.Address != "reminders@noteria.app" {
		t.Errorf("unexpected sender: %+v", got.From)
	}
	if got.Subject != ReminderSubject || got.BodyHTML == "" || got.BodyText == "" {
		t.Errorf("expected rendered content, got %+v", got)
	}
	if len(l.infos) != 1 {
		t.Errorf("expected one info log, got %v", l.infos)
	}
}

func TestReminderNotifier_ProviderFailureIsReturnedNotRetried(t *testing.T) {
	p := &fakeProvider{err: types.NewAppError(types.ErrCodeUpstreamUnavailable, "down", nil)}
	l := newTestLogger()
	n := newTestNotifier(t, p, l)

	err := n.Send(context.Background(), "owner@example.com", &types.Task{ID: "task-1", Title: "x", Priority: types.PriorityLow})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(p.calls) != 1 {
		t.Errorf("expected exactly one attempt, got %d", len(p.calls))
	}
	if len(l.errors) != 1 {
		t.Errorf("expected one error log, got %v", l.errors)
	}
}

func TestReminderNotifier_BlockedRecipient(t *testing.T) {
	p := &fakeProvider{err: types.NewAppError(types.ErrCodeEmailBlocked, "suppressed", nil)}
	n := newTestNotifier(t, p, newTestLogger())

	err := n.Send(context.Background(), "owner@example.com", &types.Task{ID: "task-1", Title: "x", Priority: types.PriorityLow})
	if !errors.Is(err, ErrRecipientBlocked) {
		t.Fatalf("expected ErrRecipientBlocked, got %v", err)
	}
}

func TestReminderNotifier_EmptyRecipient(t *testing.T) {
	p := &fakeProvider{}
	l := newTestLogger()
	n := newTestNotifier(t, p, l)

	if err := n.Send(context.Background(), "", &types.Task{ID: "task-1"}); err == nil {
		t.Fatal("expected error for empty recipient")
	}
	if len(p.calls) != 0 {
		t.Error("provider should not be called")
	}
	if len(l.errors) != 1 {
		t.Errorf("expected one error log, got %v", l.errors)
	}
}

func TestIsBlocklistError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sentinel", ErrRecipientBlocked, true},
		{"wrapped sentinel", fmt.Errorf("send: %w", ErrRecipientBlocked), true},
		{"app error", types.NewAppError(types.ErrCodeEmailBlocked, "blocked", nil), true},
		{"other app error", types.NewAppError(types.ErrCodeUpstreamUnavailable, "down", nil), false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlocklistError(tt.err); got != tt.want {
				t.Errorf("IsBlocklistError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"john@gmail.com", "j***@gmail.com"},
		{"j@example.com", "j***@example.com"},
		{"@example.com", "***@example.com"},
		{"not-an-email", "***"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
