package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIClientDecodesErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"limit must be a positive integer"}`))
	}))
	defer server.Close()

	client := newAPIClient(strings.TrimPrefix(server.URL, "http://"), "")
	err := client.get("/api/failed?limit=zero", nil)
	if err == nil || !strings.Contains(err.Error(), "limit must be a positive integer") {
		t.Fatalf("expected daemon error surfaced, got %v", err)
	}
}

func TestAPIClientSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := newAPIClient(strings.TrimPrefix(server.URL, "http://"), "secret")
	var payload healthPayload
	if err := client.get("/api/health", &payload); err != nil {
		t.Fatalf("expected authorized request, got %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncate("a very long error message", 10); got != "a very ..." {
		t.Fatalf("unexpected %q", got)
	}
}
