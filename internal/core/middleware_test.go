package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"noteria/internal/types"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body APIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return body.Error.Code
}

func TestRecoverer(t *testing.T) {
	s := newTestServer()
	h := s.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if code := decodeErrorCode(t, w); code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("code = %s", code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	t.Run("propagates header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-Id", "abc-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		if seen != "abc-123" || w.Header().Get("X-Request-Id") != "abc-123" {
			t.Errorf("request id = %q, header = %q", seen, w.Header().Get("X-Request-Id"))
		}
	})

	t.Run("generates when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if len(seen) != 36 {
			t.Errorf("expected a UUID, got %q", seen)
		}
		if w.Header().Get("X-Request-Id") != seen {
			t.Error("response header does not match context value")
		}
	})
}

func TestCORS_Preflight(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://app.noteria.dev"})(okHandler)

	r := httptest.NewRequest(http.MethodOptions, "/v1/tasks", nil)
	r.Header.Set("Origin", "https://app.noteria.dev")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.noteria.dev" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://app.noteria.dev"})(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	r.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer()
	s.Authenticator = &stubAuthenticator{
		actors: map[string]*types.Actor{"good": {ID: "user-1", Type: types.ActorTypeUser}},
		errs: map[string]error{
			"old":    types.NewAppError(types.ErrCodeAuthSessionExpired, "session expired", nil),
			"broken": errors.New("connection reset"),
		},
	}

	var actorID string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := types.GetActor(r.Context())
		actorID = actor.ID
	}))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantCode   string
		wantActor  string
	}{
		{name: "valid token", path: "/v1/tasks", header: "Bearer good", wantStatus: http.StatusOK, wantActor: "user-1"},
		{name: "lowercase scheme", path: "/v1/tasks", header: "bearer good", wantStatus: http.StatusOK, wantActor: "user-1"},
		{name: "missing header", path: "/v1/tasks", wantStatus: http.StatusUnauthorized, wantCode: "auth_token_missing"},
		{name: "wrong scheme", path: "/v1/tasks", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "auth_token_missing"},
		{name: "unknown token", path: "/v1/tasks", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: "auth_token_invalid"},
		{name: "expired session", path: "/v1/tasks", header: "Bearer old", wantStatus: http.StatusUnauthorized, wantCode: "auth_session_expired"},
		{name: "store failure", path: "/v1/tasks", header: "Bearer broken", wantStatus: http.StatusUnauthorized, wantCode: "auth_token_invalid"},
		{name: "public health", path: "/health", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actorID = ""
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if code := decodeErrorCode(t, w); code != tt.wantCode {
					t.Errorf("code = %s, want %s", code, tt.wantCode)
				}
			}
			if actorID != tt.wantActor {
				t.Errorf("actor = %q, want %q", actorID, tt.wantActor)
			}
		})
	}
}

func TestRateLimit_RejectsAfterQuota(t *testing.T) {
	s := newTestServer()
	clock := &manualClock{now: time.Now()}
	s.RateLimitStore = NewMemoryRateLimitStore(clock)
	h := s.RateLimit(okHandler)

	send := func(userID string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
		r = r.WithContext(types.WithActor(r.Context(), types.Actor{ID: userID, Type: types.ActorTypeUser}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	for i := 0; i < 3; i++ {
		w := send("user-1")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "3" {
			t.Errorf("limit header = %q", got)
		}
	}

	w := send("user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if code := decodeErrorCode(t, w); code != string(types.ErrCodeRateLimit) {
		t.Errorf("code = %s", code)
	}
	if ra, _ := strconv.Atoi(w.Header().Get("Retry-After")); ra < 1 {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	if w := send("user-2"); w.Code != http.StatusOK {
		t.Errorf("other user throttled: status = %d", w.Code)
	}

	clock.Advance(20 * time.Second)
	if w := send("user-1"); w.Code != http.StatusOK {
		t.Errorf("expected refill after 20s, status = %d", w.Code)
	}
}

func TestRateLimit_PassesWithoutActor(t *testing.T) {
	s := newTestServer()
	s.RateLimitStore = NewMemoryRateLimitStore(nil)
	h := s.RateLimit(okHandler)

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
}

type failingStore struct{}

func (failingStore) IncrementAndCheck(context.Context, string, int, time.Duration) (RateLimitResult, error) {
	return RateLimitResult{}, errors.New("store down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	s := newTestServer()
	s.RateLimitStore = failingStore{}
	h := s.RateLimit(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	r = r.WithContext(types.WithActor(r.Context(), types.Actor{ID: "user-1"}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestMemoryRateLimitStore_PrunesIdleBuckets(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	store := NewMemoryRateLimitStore(clock)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := store.IncrementAndCheck(ctx, key, 5, time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("len = %d, want 3", store.Len())
	}

	clock.Advance(2 * time.Minute)
	if _, err := store.IncrementAndCheck(ctx, "d", 5, time.Minute); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Errorf("len = %d, want 1 after prune", store.Len())
	}
}
