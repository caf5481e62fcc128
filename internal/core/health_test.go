package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeProbe struct {
	name string
	err  error
	wait bool
}

func (p fakeProbe) Name() string { return p.name }

func (p fakeProbe) Check(ctx context.Context) error {
	if p.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func runHealth(t *testing.T, probes ...HealthProbe) (int, healthResponse) {
	t.Helper()
	s := newTestServer()
	s.HealthProbes = probes

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w.Code, resp
}

func TestHandleHealth_NoProbes(t *testing.T) {
	code, resp := runHealth(t)
	if code != http.StatusOK || resp.Status != "healthy" {
		t.Errorf("got %d %q", code, resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q", resp.Version)
	}
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	code, resp := runHealth(t, DatabaseProbe{DB: fakePinger{}}, fakeProbe{name: "email"})
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Components["database"].Status != "healthy" || resp.Components["email"].Status != "healthy" {
		t.Errorf("components = %+v", resp.Components)
	}
}

func TestHandleHealth_DatabaseDown(t *testing.T) {
	code, resp := runHealth(t, DatabaseProbe{DB: fakePinger{err: errors.New("refused")}})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Status != "unhealthy" || resp.Components["database"].Message != "ping failed: refused" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleHealth_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the health deadline")
	}
	code, resp := runHealth(t, fakeProbe{name: "slow", wait: true})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Components["slow"].Status != "unhealthy" {
		t.Errorf("components = %+v", resp.Components)
	}
}
