package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/nao1215/websnap/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and content type", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<p>hi</p>"))
		}))
		defer srv.Close()

		resp, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Content) != "<p>hi</p>" {
			t.Errorf("unexpected body %q", resp.Content)
		}
		if resp.ContentType != "text/html; charset=utf-8" {
			t.Errorf("unexpected content type %q", resp.ContentType)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("error status keeps the body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}))
		defer srv.Close()

		resp, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{})
		if err != nil {
			t.Fatalf("status 500 must not be an error, got %v", err)
		}
		if resp.StatusCode != http.StatusInternalServerError || string(resp.Content) != "boom" {
			t.Errorf("unexpected response %d %q", resp.StatusCode, resp.Content)
		}
	})

	t.Run("sends headers cookie and user agent", func(t *testing.T) {
		t.Parallel()

		headers := make(chan http.Header, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			headers <- r.Header.Clone()
		}))
		defer srv.Close()

		_, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{
			Headers:   map[string]string{"X-Test": "1", "Cookie": "a=1"},
			Cookie:    "session=abc",
			UserAgent: "websnap-test",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := <-headers
		if got.Get("X-Test") != "1" {
			t.Errorf("missing custom header: %v", got)
		}
		if got.Get("Cookie") != "a=1; session=abc" {
			t.Errorf("unexpected cookie %q", got.Get("Cookie"))
		}
		if got.Get("User-Agent") != "websnap-test" {
			t.Errorf("unexpected user agent %q", got.Get("User-Agent"))
		}
	})

	t.Run("default user agent", func(t *testing.T) {
		t.Parallel()

		agents := make(chan string, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			agents <- r.UserAgent()
		}))
		defer srv.Close()

		if _, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{}); err != nil {
			t.Fatal(err)
		}
		if ua := <-agents; ua != config.DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", ua)
		}
	})

	t.Run("decodes gzip", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte("compressed body"))
		_ = gz.Close()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(buf.Bytes())
		}))
		defer srv.Close()

		resp, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if string(resp.Content) != "compressed body" {
			t.Errorf("unexpected body %q", resp.Content)
		}
	})

	t.Run("decodes brotli", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte("brotli body"))
		_ = bw.Close()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(buf.Bytes())
		}))
		defer srv.Close()

		resp, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if string(resp.Content) != "brotli body" {
			t.Errorf("unexpected body %q", resp.Content)
		}
	})

	t.Run("truncates at max body size and warns", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer srv.Close()

		var logs bytes.Buffer
		c, err := NewClient(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		if err != nil {
			t.Fatal(err)
		}

		resp, err := c.Fetch(context.Background(), srv.URL, config.RequestOptions{MaxBodySize: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Content) != 10 {
			t.Errorf("expected 10 bytes, got %d", len(resp.Content))
		}
		if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "response body truncated") {
			t.Errorf("expected a truncation warning, got %q", logs.String())
		}
	})

	t.Run("body at the limit is not truncated", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 10)))
		}))
		defer srv.Close()

		var logs bytes.Buffer
		c, err := NewClient(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		if err != nil {
			t.Fatal(err)
		}

		resp, err := c.Fetch(context.Background(), srv.URL, config.RequestOptions{MaxBodySize: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Content) != 10 || strings.Contains(logs.String(), "truncated") {
			t.Errorf("unexpected %d bytes, logs %q", len(resp.Content), logs.String())
		}
	})

	t.Run("empty encoded error response is not a transport error", func(t *testing.T) {
		t.Parallel()

		for _, encoding := range []string{"gzip", "deflate", "br"} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Encoding", encoding)
				w.WriteHeader(http.StatusInternalServerError)
			}))

			resp, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{})
			srv.Close()
			if err != nil {
				t.Fatalf("%s: status 500 with an empty body must not be an error, got %v", encoding, err)
			}
			if resp.StatusCode != http.StatusInternalServerError || len(resp.Content) != 0 {
				t.Errorf("%s: unexpected response %d %q", encoding, resp.StatusCode, resp.Content)
			}
		}
	})

	t.Run("connection refused is a transport error", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		_, err = newTestClient(t).Fetch(context.Background(), "http://"+addr+"/", config.RequestOptions{})
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		var te *Error
		if !errors.As(err, &te) || te.URL != "http://"+addr+"/" {
			t.Errorf("expected *Error carrying the URL, got %v", err)
		}
	})

	t.Run("timeout is a transport error", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := newTestClient(t).Fetch(context.Background(), srv.URL, config.RequestOptions{Timeout: 50 * time.Millisecond})
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})
}

func TestNewClientProxy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"ip and port", "127.0.0.1:9050", false},
		{"hostname and port", "localhost:9050", false},
		{"no port", "127.0.0.1", true},
		{"empty host", ":9050", true},
		{"port out of range", "127.0.0.1:70000", true},
		{"port zero", "127.0.0.1:0", true},
		{"non numeric port", "127.0.0.1:abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewClient(WithSOCKS5Proxy(tt.address))
			if tt.wantErr && !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTor(t *testing.T) {
	t.Parallel()

	t.Run("unstarted daemon", func(t *testing.T) {
		t.Parallel()

		tor := NewTor(0)
		if tor.startupTimeout != 3*time.Minute {
			t.Errorf("expected default startup timeout, got %v", tor.startupTimeout)
		}
		if tor.Running() || tor.SocksAddr() != "" {
			t.Error("expected stopped daemon")
		}
		if _, err := tor.ProxyOption(); !errors.Is(err, ErrTorNotRunning) {
			t.Errorf("expected ErrTorNotRunning, got %v", err)
		}
		if err := tor.Stop(); err != nil {
			t.Errorf("stop on unstarted daemon: %v", err)
		}
	})

	t.Run("keeps custom timeout", func(t *testing.T) {
		t.Parallel()

		if tor := NewTor(time.Minute); tor.startupTimeout != time.Minute {
			t.Errorf("expected 1m, got %v", tor.startupTimeout)
		}
	})
}
