package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithLogging_ProxiesAndRecordsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { SetLogger(zap.NewNop().Sugar()) })

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("synced"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/records/sync", nil)
	WithLogging(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated || rr.Body.String() != "synced" {
		t.Fatalf("response not proxied: %d %q", rr.Code, rr.Body.String())
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("want one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != http.MethodPost || fields["uri"] != "/api/records/sync" {
		t.Fatalf("request fields: %v", fields)
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Fatalf("status field: %v", fields["status"])
	}
	if fields["size"] != int64(len("synced")) {
		t.Fatalf("size field: %v", fields["size"])
	}
}

func TestWithLogging_DefaultStatusOK(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { SetLogger(zap.NewNop().Sugar()) })

	// хендлер пишет тело без явного WriteHeader
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	WithLogging(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/user/test", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("code: %d", rr.Code)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("want one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(http.StatusOK) {
		t.Fatalf("default status field: %v", got)
	}
}
