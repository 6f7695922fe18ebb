package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Bharath8080/voiced/pkg/gateway/config"
)

func testConfig() config.Config {
	return config.Config{
		Addr:             "127.0.0.1:0",
		CerebrasAPIKey:   "csk-test",
		CartesiaAPIKey:   "cart-test",
		MaxSearchResults: 5,
		ToolTimeout:      5 * time.Second,
		MaxParallelTools: 2,
		MetricsNamespace: "voiced_test",
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(testConfig(), logger, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "req_fixed")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "req_fixed" {
		t.Errorf("X-Request-ID = %q, want req_fixed", got)
	}
}

func TestDrainRefusesNewWork(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Drain(ctx, "test shutdown")

	if !s.Draining() {
		t.Fatal("Draining() = false after Drain")
	}

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/readyz status %d, want 503", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"draining":true`) {
		t.Errorf("/readyz body missing draining flag: %s", body)
	}

	resp, err = http.Get(ts.URL + "/v1/live")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/v1/live status %d, want 503", resp.StatusCode)
	}
}

func TestDrainIsIdempotent(t *testing.T) {
	s, _ := newTestServer(t)

	ctx := context.Background()
	s.Drain(ctx, "first")
	s.Drain(ctx, "second")
	if !s.Draining() {
		t.Fatal("Draining() = false after repeated Drain")
	}
}
