package reminder

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"noteria/internal/types"
)

// fakeClock fires timers synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing due timers in deadline order.
// Callbacks run without the clock lock held.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

// live counts timers that are neither stopped nor fired.
func (c *fakeClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeStore struct {
	mu        sync.Mutex
	tasks     map[string]*types.Task
	emails    map[string]string
	getErr    error
	listErr   error
	filterErr error
	reads     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:  make(map[string]*types.Task),
		emails: make(map[string]string),
	}
}

func (s *fakeStore) put(t *types.Task, ownerEmail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	s.emails[t.UserID] = ownerEmail
}

func (s *fakeStore) update(id string, fn func(*types.Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.tasks[id])
}

func (s *fakeStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

func (s *fakeStore) GetReminderTarget(_ context.Context, id string) (*types.ReminderTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.getErr != nil {
		return nil, s.getErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundTask, "task not found", nil)
	}
	cp := *t
	return &types.ReminderTarget{Task: &cp, OwnerEmail: s.emails[t.UserID]}, nil
}

func (s *fakeStore) ListFutureEmailReminders(_ context.Context, now time.Time) ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*types.Task
	for _, t := range s.tasks {
		if t.EmailReminderDue(now) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) FilterExisting(_ context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filterErr != nil {
		return nil, s.filterErr
	}
	var out []string
	for _, id := range ids {
		if _, ok := s.tasks[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

type sentReminder struct {
	To    string
	Title string
	At    time.Time
}

type fakeNotifier struct {
	mu    sync.Mutex
	clock *fakeClock
	sent  []sentReminder
	err   error
}

func (n *fakeNotifier) Send(_ context.Context, to string, task *types.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentReminder{To: to, Title: task.Title, At: n.clock.Now()})
	return n.err
}

func (n *fakeNotifier) calls() []sentReminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.sent)
}

type fakeMetrics struct {
	mu      sync.Mutex
	sent    int
	failed  []string
	dropped []string
	pending []int
}

func (m *fakeMetrics) RecordSent(context.Context, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
}

func (m *fakeMetrics) RecordFailed(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, reason)
}

func (m *fakeMetrics) RecordDropped(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, reason)
}

func (m *fakeMetrics) RecordPending(_ context.Context, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, n)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Warn(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (l nopLogger) With(...any) types.Logger { return l }

var errStoreDown = errors.New("connection refused")

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock    *fakeClock
	store    *fakeStore
	notifier *fakeNotifier
	metrics  *fakeMetrics
	svc      *Service
}

func newHarness() *harness {
	clock := newFakeClock(t0)
	store := newFakeStore()
	notifier := &fakeNotifier{clock: clock}
	metrics := &fakeMetrics{}
	svc := NewService(ServiceConfig{
		Store:       store,
		Notifier:    notifier,
		Clock:       clock,
		Metrics:     metrics,
		Logger:      nopLogger{},
		HookTimeout: time.Second,
	})
	return &harness{clock: clock, store: store, notifier: notifier, metrics: metrics, svc: svc}
}

func emailTask(id string, at time.Time) *types.Task {
	return &types.Task{
		ID:           id,
		UserID:       "user-1",
		Title:        "Task " + id,
		Priority:     types.PriorityMedium,
		Status:       types.TaskStatusPending,
		HasReminder:  true,
		ReminderType: types.ReminderEmail,
		ReminderTime: &at,
	}
}
