package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		address string
		want    bool
	}{
		{name: "valid localhost", address: "127.0.0.1:9050", want: true},
		{name: "valid hostname", address: "proxy.local:1080", want: true},
		{name: "missing port", address: "127.0.0.1", want: false},
		{name: "empty host", address: ":9050", want: false},
		{name: "port zero", address: "127.0.0.1:0", want: false},
		{name: "port too large", address: "127.0.0.1:70000", want: false},
		{name: "non-numeric port", address: "127.0.0.1:socks", want: false},
		{name: "empty", address: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := isValidProxyAddress(tc.address); got != tc.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tc.address, got, tc.want)
			}
		})
	}
}

func TestNewClientInvalidProxy(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(WithProxy("nope")); !errors.Is(err, ErrInvalidProxyAddress) {
		t.Errorf("NewClient() error = %v, want ErrInvalidProxyAddress", err)
	}
	if _, err := NewClient(WithProxy("127.0.0.1:9050")); err != nil {
		t.Errorf("NewClient() unexpected error: %v", err)
	}
}

func TestClientGet(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Header().Set("X-Seen-UA", r.UserAgent())
		w.Header().Set("X-Seen-Cookie", r.Header.Get("Cookie"))
		w.Header().Set("X-Seen-Site", r.Header.Get("X-Site"))
		w.Header().Set("X-Seen-Extra", r.Header.Get("X-Extra"))
		_, _ = io.WriteString(w, "0123456789")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(
		WithUserAgent("siteicons-test"),
		WithCookie("sid=1"),
		WithHeaders(map[string]string{"X-Site": "site", "X-Extra": "site"}),
		WithMaxBodySize(4),
	)
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		resp, err := client.Get(ctx, server.URL+"/ok", map[string]string{"X-Extra": "request"})
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		defer resp.Body.Close()

		checks := map[string]string{
			"X-Seen-UA":     "siteicons-test",
			"X-Seen-Cookie": "sid=1",
			"X-Seen-Site":   "site",
			"X-Seen-Extra":  "request",
		}
		for header, want := range checks {
			if got := resp.Header.Get(header); got != want {
				t.Errorf("%s = %q, want %q", header, got, want)
			}
		}

		mediaType, err := resp.MediaType()
		if err != nil || mediaType != "image/png" {
			t.Errorf("MediaType() = %q, %v; want image/png", mediaType, err)
		}

		body, _ := io.ReadAll(resp.Body)
		if string(body) != "0123" {
			t.Errorf("body = %q, want limited to %q", body, "0123")
		}
	})

	t.Run("non-2xx", func(t *testing.T) {
		t.Parallel()

		if _, err := client.Get(ctx, server.URL+"/missing", nil); !errors.Is(err, ErrBadStatus) {
			t.Errorf("Get() error = %v, want ErrBadStatus", err)
		}
	})

	t.Run("redirect followed", func(t *testing.T) {
		t.Parallel()

		resp, err := client.Get(ctx, server.URL+"/moved", nil)
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		defer resp.Body.Close()
		if !strings.HasSuffix(resp.URL.Path, "/ok") {
			t.Errorf("final URL = %s, want /ok", resp.URL)
		}
	})

	t.Run("redirect loop capped", func(t *testing.T) {
		t.Parallel()

		if _, err := client.Get(ctx, server.URL+"/loop", nil); !errors.Is(err, ErrTooManyRedirects) {
			t.Errorf("Get() error = %v, want ErrTooManyRedirects", err)
		}
	})
}

func TestResponseMediaType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		contentType string
		want        string
		wantErr     bool
	}{
		{name: "plain", contentType: "image/svg+xml", want: "image/svg+xml"},
		{name: "params and case", contentType: "Image/X-Icon; q=1", want: "image/x-icon"},
		{name: "missing", contentType: "", wantErr: true},
		{name: "malformed", contentType: "/;;", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp := &Response{Header: http.Header{}}
			if tc.contentType != "" {
				resp.Header.Set("Content-Type", tc.contentType)
			}
			got, err := resp.MediaType()
			if tc.wantErr {
				if !errors.Is(err, ErrNoContentType) {
					t.Errorf("MediaType() error = %v, want ErrNoContentType", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("MediaType() = %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}
