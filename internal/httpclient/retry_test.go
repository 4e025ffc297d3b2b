package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestParseRetryAfter(t *testing.T) {
	max := 60 * time.Second
	tests := []struct {
		name string
		s    string
		want time.Duration
	}{
		{"empty", "", 1 * time.Second},
		{"seconds 5", "5", 5 * time.Second},
		{"seconds 0", "0", 0},
		{"seconds over cap", "120", max},
		{"whitespace", "  10  ", 10 * time.Second},
		{"invalid fallback", "x", 1 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.s, max); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestDoWithRetry429Then200(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.Header.Get("User-Agent") != "vodaudit-test" {
			t.Errorf("expected headers to carry over, got %q", r.Header.Get("User-Agent"))
		}
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "vodaudit-test")
	resp, err := DoWithRetry(ctx, WithTimeout(5*time.Second), req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDoWithRetry5xxRetriesOnce(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	policy := DefaultRetryPolicy
	policy.Backoff5xx = time.Millisecond
	resp, err := DoWithRetry(ctx, nil, req, policy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway || attempts != 2 {
		t.Errorf("status = %d attempts = %d, want 502 after 2", resp.StatusCode, attempts)
	}
}

func TestDoWithRetry4xxNoRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(ctx, nil, req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || attempts != 1 {
		t.Errorf("status = %d attempts = %d, want 404 after 1", resp.StatusCode, attempts)
	}
}

func TestReadBodyDecodesEncodings(t *testing.T) {
	payload := []byte(`{"series":[]}`)

	var brBuf bytes.Buffer
	bw := brotli.NewWriter(&brBuf)
	bw.Write(payload)
	bw.Close()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write(payload)
	gw.Close()

	cases := map[string][]byte{
		"":     payload,
		"br":   brBuf.Bytes(),
		"gzip": gzBuf.Bytes(),
	}
	for encoding, body := range cases {
		resp := &http.Response{Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(body))}
		if encoding != "" {
			resp.Header.Set("Content-Encoding", encoding)
		}
		got, err := ReadBody(resp, 0)
		if err != nil {
			t.Fatalf("ReadBody(%q): %v", encoding, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("ReadBody(%q) = %q", encoding, got)
		}
	}

	resp := &http.Response{Header: http.Header{"Content-Encoding": {"zstd"}}, Body: io.NopCloser(bytes.NewReader(nil))}
	if _, err := ReadBody(resp, 0); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}

}

func TestReadBodyRejectsOversizedBody(t *testing.T) {
	payload := []byte(`{"series":[]}`)

	resp := &http.Response{Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(payload))}
	got, err := ReadBody(resp, int64(len(payload)))
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("body at the limit: got %q, err %v", got, err)
	}

	resp = &http.Response{Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(payload))}
	_, err = ReadBody(resp, 4)
	if err == nil || !strings.Contains(err.Error(), "response exceeds 4 bytes") {
		t.Fatalf("expected size error, got %v", err)
	}

	var brBuf bytes.Buffer
	bw := brotli.NewWriter(&brBuf)
	bw.Write(payload)
	bw.Close()
	resp = &http.Response{Header: http.Header{"Content-Encoding": {"br"}}, Body: io.NopCloser(bytes.NewReader(brBuf.Bytes()))}
	if _, err := ReadBody(resp, 4); err == nil {
		t.Fatal("expected size error for decoded brotli body")
	}
}
