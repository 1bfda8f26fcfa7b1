package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) PingContext(context.Context) error {
	return f.err
}

type fakeQueueHealth struct {
	err error
}

func (f *fakeQueueHealth) HealthCheck(context.Context) error {
	return f.err
}

func healthRequest(t *testing.T, checker *HealthChecker, mode string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()

	url := "/healthz"
	if mode != "" {
		url += "?mode=" + mode
	}
	req := httptest.NewRequest("GET", url, nil)
	rec := httptest.NewRecorder()
	checker.HealthCheck(rec, req)

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return rec, response
}

func TestHealthCheckBasicMode(t *testing.T) {
	t.Parallel()

	// Basic mode answers without touching any dependency.
	checker := NewHealthChecker(&fakePinger{err: errors.New("db down")}, nil, nil)
	rec, response := healthRequest(t, checker, "")

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if response.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response.Status)
	}
	if response.Checks != nil {
		t.Errorf("Expected no checks in basic mode, got %v", response.Checks)
	}
}

func TestHealthCheckExtendedMode(t *testing.T) {
	t.Parallel()

	t.Run("all dependencies healthy", func(t *testing.T) {
		t.Parallel()

		checker := NewHealthChecker(&fakePinger{}, nil, &fakeQueueHealth{})
		rec, response := healthRequest(t, checker, "extended")

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
		if response.Checks["database"] != "healthy" {
			t.Errorf("Expected database check 'healthy', got '%s'", response.Checks["database"])
		}
		if response.Checks["queue"] != "healthy" {
			t.Errorf("Expected queue check 'healthy', got '%s'", response.Checks["queue"])
		}
	})

	t.Run("nil redis and queue are skipped", func(t *testing.T) {
		t.Parallel()

		checker := NewHealthChecker(&fakePinger{}, nil, nil)
		rec, response := healthRequest(t, checker, "extended")

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
		if _, ok := response.Checks["redis"]; ok {
			t.Error("Expected no redis check when redis is not configured")
		}
		if _, ok := response.Checks["queue"]; ok {
			t.Error("Expected no queue check when the queue is not configured")
		}
	})

	t.Run("database failure reports unhealthy", func(t *testing.T) {
		t.Parallel()

		checker := NewHealthChecker(&fakePinger{err: errors.New("connection refused")}, nil, &fakeQueueHealth{})
		rec, response := healthRequest(t, checker, "extended")

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", rec.Code)
		}
		if response.Status != "unhealthy" {
			t.Errorf("Expected status 'unhealthy', got '%s'", response.Status)
		}
		if response.Checks["database"] == "healthy" {
			t.Error("Expected database check to report the failure")
		}
		if response.Checks["queue"] != "healthy" {
			t.Errorf("Expected queue check 'healthy', got '%s'", response.Checks["queue"])
		}
	})

	t.Run("queue failure reports unhealthy", func(t *testing.T) {
		t.Parallel()

		checker := NewHealthChecker(&fakePinger{}, nil, &fakeQueueHealth{err: errors.New("amqp closed")})
		rec, response := healthRequest(t, checker, "extended")

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", rec.Code)
		}
		if response.Status != "unhealthy" {
			t.Errorf("Expected status 'unhealthy', got '%s'", response.Status)
		}
	})
}
