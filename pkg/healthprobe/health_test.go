package healthprobe

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	hc := New()

	if hc == nil {
		t.Fatal("New() returned nil")
	}

	// Verify start time is recent
	if time.Since(hc.startTime) > 1*time.Second {
		t.Errorf("Start time is too old: %v", hc.startTime)
	}

	// Verify not ready by default
	if hc.ready.Load() {
		t.Error("HealthChecker should not be ready by default")
	}
}

func TestHealth_AlwaysOK(t *testing.T) {
	hc := New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	hc.Health()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Health() status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want %q", resp.Status, "healthy")
	}
	if resp.Uptime == "" {
		t.Error("uptime should be populated")
	}
}

func TestReady_FlagGates(t *testing.T) {
	tests := []struct {
		name       string
		setReady   bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "not_ready_by_default",
			setReady:   false,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
		{
			name:       "ready_when_flag_set",
			setReady:   true,
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New()
			hc.SetReady(tt.setReady)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()
			hc.Ready()(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("Ready() status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantBody)
			}
		})
	}
}

func TestReady_DependencyChecks(t *testing.T) {
	hc := New()
	hc.SetReady(true)

	redisDown := errors.New("dial tcp: connection refused")
	hc.AddCheck("redis", func() error { return redisDown })
	hc.AddCheck("barstore", func() error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	hc.Ready()(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Ready() status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Checks) != 1 {
		t.Fatalf("failed checks = %v, want only redis", resp.Checks)
	}
	if resp.Checks["redis"] != redisDown.Error() {
		t.Errorf("redis check message = %q, want %q", resp.Checks["redis"], redisDown.Error())
	}

	// Recovery flips readiness back without touching the flag.
	hc2 := New()
	hc2.SetReady(true)
	hc2.AddCheck("redis", func() error { return nil })

	rec = httptest.NewRecorder()
	hc2.Ready()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ready() after recovery status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSetReady_Toggle(t *testing.T) {
	hc := New()

	for i := 0; i < 3; i++ {
		hc.SetReady(true)
		if !hc.ready.Load() {
			t.Fatal("ready should be true")
		}
		hc.SetReady(false)
		if hc.ready.Load() {
			t.Fatal("ready should be false")
		}
	}
}
