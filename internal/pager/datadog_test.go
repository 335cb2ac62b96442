package pager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDatadogSinkPrependsPagerdutyTrigger(t *testing.T) {
	var gotBody datadogStreamEvent
	var gotAPIKeyHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKeyHeader = r.Header.Get("DD-API-KEY")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := newDatadogSinkWithURL("key123", srv.URL)
	if err := s.Notify(context.Background(), "cosmoshub-4: validator missed 50 blocks"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if gotAPIKeyHeader != "key123" {
		t.Fatalf("expected api key header forwarded, got %q", gotAPIKeyHeader)
	}
	if !strings.HasPrefix(gotBody.Text, "@pagerduty") {
		t.Fatalf("expected text to begin with @pagerduty trigger token, got %q", gotBody.Text)
	}
}

func TestDatadogSinkReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newDatadogSinkWithURL("key123", srv.URL)
	if err := s.Notify(context.Background(), "page"); err == nil {
		t.Fatalf("expected error on 403 response")
	}
}
