package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPostJSON_RetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{
		Timeout:       time.Second,
		MaxRetries:    1,
		RetryWaitTime: time.Millisecond,
		RetryMaxWait:  5 * time.Millisecond,
	}, zap.NewNop())
	defer c.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if !out.OK {
		t.Fatal("response not decoded")
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestGet_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{Timeout: time.Second}, zap.NewNop())
	defer c.Close()

	var out map[string]any
	err := c.Get(context.Background(), srv.URL, nil, &out)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected HTTPError 404, got %v", err)
	}
}

func TestTransport_RetriesAndKeepsBody(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"id":1}` {
			t.Errorf("unexpected body %q", body)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type not forwarded: %q", r.Header.Get("Content-Type"))
		}
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result":"0x1"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{
		Timeout:       time.Second,
		MaxRetries:    1,
		RetryWaitTime: time.Millisecond,
		RetryMaxWait:  5 * time.Millisecond,
	}, zap.NewNop())
	defer c.Close()

	hc := &http.Client{Transport: c.Transport()}
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"id":1}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after retry, got %d", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != `{"result":"0x1"}` {
		t.Fatalf("unexpected response body %q", got)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}
