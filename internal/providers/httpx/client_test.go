package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient() *Client {
	return New(nil, Options{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	if err := fastClient().GetJSON(context.Background(), "test", srv.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !out.OK || calls != 3 {
		t.Fatalf("expected success on third attempt, calls=%d out=%+v", calls, out)
	}
}

func TestStatusErrorOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := fastClient().GetJSON(context.Background(), "test", srv.URL, nil, &struct{}{})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized || se.Body != "bad key" {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("4xx must not be retried, calls=%d", calls)
	}
}

func TestRetriesExhaustedReturnsStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := fastClient().GetJSON(context.Background(), "test", srv.URL, nil, &struct{}{})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}
	if se.Body != "upstream exploded" {
		t.Fatalf("last failure body lost, got %q", se.Body)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestPostJSONSendsBodyEachAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("X-API-KEY") != "k" {
			http.Error(w, "headers", http.StatusBadRequest)
			return
		}
		if r.ContentLength == 0 {
			http.Error(w, "empty body", http.StatusBadRequest)
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := fastClient().PostJSON(context.Background(), "test", srv.URL, map[string]string{"q": "x"}, map[string]string{"X-API-KEY": "k"}, &struct{}{}); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry after 429, calls=%d", calls)
	}
}
