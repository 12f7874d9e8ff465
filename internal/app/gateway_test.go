package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGatewayCall_ReturnsBodyOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, testLogger())
	data, err := gw.Call(context.Background(), http.MethodGet, "/health", nil, "", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", data)
	}
}

func TestGatewayCall_HTTPErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"vector store unavailable"}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, testLogger())
	_, err := gw.Call(context.Background(), http.MethodPost, "/chat", nil, "", time.Second)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", httpErr.Status)
	}
	if httpErr.Error() != "vector store unavailable" {
		t.Fatalf("expected server detail, got %q", httpErr.Error())
	}
}

func TestGatewayCall_HTTPErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, testLogger())
	_, err := gw.Call(context.Background(), http.MethodGet, "/missing", nil, "", time.Second)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Error() != "HTTP 404: Not Found" {
		t.Fatalf("unexpected message: %q", httpErr.Error())
	}
}

func TestGatewayCall_TimeoutCancelsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	gw := NewGateway(srv.URL, testLogger())
	start := time.Now()
	_, err := gw.Call(context.Background(), http.MethodGet, "/health", nil, "", 50*time.Millisecond)

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("call was not cancelled at the budget, took %v", elapsed)
	}
}

func TestGatewayCall_NetworkErrorWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	gw := NewGateway(srv.URL, testLogger())
	_, err := gw.Call(context.Background(), http.MethodGet, "/health", nil, "", time.Second)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.Unwrap() == nil {
		t.Fatalf("expected the underlying transport error to be carried")
	}
}
