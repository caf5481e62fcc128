package core

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"noteria/internal/types"
)

// rateLimitWindow is the window RequestsPerMinute is expressed in.
const rateLimitWindow = time.Minute

// RateLimit enforces the per-user request quota configured in
// RateLimitConfig. It runs after AuthMiddleware and keys buckets by the
// actor's user ID.
//
// Unauthenticated requests and servers without a store pass through. Store
// errors fail open.
//
// Every limited response carries X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset; a rejected one also carries Retry-After.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RateLimitStore == nil || !s.rateLimitEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		actor, ok := types.GetActor(r.Context())
		if !ok || actor.ID == "" {
			next.ServeHTTP(w, r)
			return
		}

		limit := s.rateLimitPerWindow()
		result, err := s.RateLimitStore.IncrementAndCheck(r.Context(), actor.ID, limit, rateLimitWindow)
		if err != nil {
			s.Logger.Error("rate limit store error",
				slog.String("user_id", actor.ID),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, limit, result)

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("user_id", actor.ID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			JSON(w, r, http.StatusTooManyRequests, APIErrorResponse{
				Error: ErrorDetail{
					Code:      string(types.ErrCodeRateLimit),
					Message:   "Too many requests, please try again later.",
					RequestID: types.GetRequestID(r.Context()),
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitEnabled() bool {
	return s.Config == nil || s.Config.RateLimit.Enabled
}

func (s *Server) rateLimitPerWindow() int {
	if s.Config != nil && s.Config.RateLimit.RequestsPerMinute > 0 {
		return s.Config.RateLimit.RequestsPerMinute
	}
	return 50
}

// setRateLimitHeaders writes the standard X-RateLimit-* headers to the response.
func setRateLimitHeaders(w http.ResponseWriter, limit int, result RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// MemoryRateLimitStore keeps one token bucket per key in process memory.
// A bucket holds limit tokens and refills at limit per window, so a user may
// burst up to the full quota and then proceeds at the sustained rate.
type MemoryRateLimitStore struct {
	clock types.Clock

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	limit    int
	window   time.Duration
	lastSeen time.Time
}

// NewMemoryRateLimitStore creates an empty store. clock may be nil.
func NewMemoryRateLimitStore(clock types.Clock) *MemoryRateLimitStore {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &MemoryRateLimitStore{
		clock:   clock,
		buckets: make(map[string]*bucket),
	}
}

// IncrementAndCheck implements RateLimitStore.
func (m *MemoryRateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(now, window)

	b, ok := m.buckets[key]
	if !ok || b.limit != limit || b.window != window {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			limit:   limit,
			window:  window,
		}
		m.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   now.Add(delay),
		}, nil
	}

	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   now.Add(window / time.Duration(limit)),
	}, nil
}

// Len returns the number of tracked keys.
func (m *MemoryRateLimitStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// pruneLocked drops buckets idle for a full window; those are refilled and
// indistinguishable from fresh ones. It runs at most once per window.
func (m *MemoryRateLimitStore) pruneLocked(now time.Time, window time.Duration) {
	if now.Sub(m.lastPrune) < window {
		return
	}
	m.lastPrune = now
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) >= b.window {
			delete(m.buckets, key)
		}
	}
}
