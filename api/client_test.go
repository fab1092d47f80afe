package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"procinfo/models"
	"procinfo/query"
)

func TestClientProcesses(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/processes" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]models.ProcessMetrics{
			{PID: 2, Usage: 5, Name: "worker", RSS: 4096, RuntimeMS: 5000, VSZ: 8192},
		})
	}))
	defer srv.Close()

	usage := 1.0
	settle := uint64(0)
	c := NewClient(srv.URL+"/", 5*time.Second)
	procs, err := c.Processes(context.Background(), query.Filter{MinUsage: &usage, SettleMS: &settle})
	if err != nil {
		t.Fatalf("Processes() error: %v", err)
	}

	if gotQuery != "min_usage=1&settle_ms=0" {
		t.Errorf("query string = %q", gotQuery)
	}
	if len(procs) != 1 || procs[0].Name != "worker" || procs[0].RuntimeMS != 5000 {
		t.Errorf("processes = %+v", procs)
	}
}

func TestClientProcessesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	procs, err := NewClient(srv.URL, time.Second).Processes(context.Background(), query.Filter{})
	if err != nil {
		t.Fatalf("Processes() error: %v", err)
	}
	if procs == nil || len(procs) != 0 {
		t.Errorf("processes = %#v; want empty non-nil slice", procs)
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid filter: min_rss_kb", Code: CodeInvalidFilter})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Processes(context.Background(), query.Filter{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v; want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != CodeInvalidFilter {
		t.Errorf("APIError = %+v", apiErr)
	}
	if apiErr.Error() != "API error (400): invalid filter: min_rss_kb [invalid_filter]" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestClientPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Health(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v; want *APIError", err)
	}
	if apiErr.Message != "bad gateway" || apiErr.Code != "" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status:  "ok",
			Version: "1.2.3",
			Host:    models.HostInfo{Hostname: "box", CPUCores: 8},
		})
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL, time.Second).Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if h.Status != "ok" || h.Version != "1.2.3" || h.Host.CPUCores != 8 {
		t.Errorf("health = %+v", h)
	}
}
