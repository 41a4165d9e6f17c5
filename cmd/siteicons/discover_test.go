package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/siteicons/internal/config"
	"github.com/nao1215/siteicons/internal/discovery"
	"github.com/nao1215/siteicons/internal/model"
)

func pngBytes(width, height uint32) []byte {
	buf := bytes.NewBufferString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(buf, binary.BigEndian, uint32(13))
	buf.WriteString("IHDR")
	_ = binary.Write(buf, binary.BigEndian, width)
	_ = binary.Write(buf, binary.BigEndian, height)
	return buf.Bytes()
}

// newSite serves a page declaring one favicon. Requests carrying the
// "X-Site" header are answered with 403 unless it equals wantHeader.
func newSite(t *testing.T, wantHeader string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		if wantHeader != "" && r.Header.Get("X-Site") != wantHeader {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><link rel="icon" href="/icon.png"></head><body></body></html>`)
	})
	mux.HandleFunc("/icon.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(32, 32))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestConfig(t *testing.T, targets ...string) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Targets = targets
	cfg.DBDir = t.TempDir()
	cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunDiscover(t *testing.T) {
	t.Parallel()

	ts := newSite(t, "")
	want := ts.URL + "/icon.png site_favicon png 32x32"

	t.Run("simple output", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		if err := runDiscover(context.Background(), newTestConfig(t, ts.URL), discardLogger(), &stdout); err != nil {
			t.Fatalf("runDiscover() unexpected error: %v", err)
		}
		if got := strings.TrimSpace(stdout.String()); got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("json output to file", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, ts.URL)
		cfg.Fast = true
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "out", "icons.json")

		var stdout bytes.Buffer
		if err := runDiscover(context.Background(), cfg, discardLogger(), &stdout); err != nil {
			t.Fatalf("runDiscover() unexpected error: %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", stdout.String())
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var icons []map[string]any
		if err := json.Unmarshal(data, &icons); err != nil {
			t.Fatalf("report is not a JSON array of icons: %v\n%s", err, data)
		}
		if len(icons) != 1 || icons[0]["url"] != ts.URL+"/icon.png" || icons[0]["kind"] != "site_favicon" {
			t.Errorf("report = %s", data)
		}
	})

	t.Run("invalid seed is reported and fails the run", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		err := runDiscover(context.Background(), newTestConfig(t, "ftp://example.com", ts.URL), discardLogger(), &stdout)
		if !errors.Is(err, discovery.ErrInvalidURL) {
			t.Errorf("runDiscover() error = %v, want ErrInvalidURL", err)
		}

		output := stdout.String()
		for _, line := range []string{"# ftp://example.com", "# error: ", "# " + ts.URL, want} {
			if !strings.Contains(output, line) {
				t.Errorf("expected output to contain %q, got\n%s", line, output)
			}
		}
	})
}

func TestRunDiscoverSaveAndHistory(t *testing.T) {
	t.Parallel()

	ts := newSite(t, "")
	cfg := newTestConfig(t, ts.URL)
	cfg.SaveToDB = true

	for range 2 {
		if err := runDiscover(context.Background(), cfg, discardLogger(), io.Discard); err != nil {
			t.Fatalf("runDiscover() unexpected error: %v", err)
		}
	}

	t.Run("lists sites", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&stdout)
		cmd.SetArgs([]string{"--db-dir", cfg.DBDir})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("history unexpected error: %v", err)
		}
		if got := strings.TrimSpace(stdout.String()); got != ts.URL {
			t.Errorf("history = %q, want %q", got, ts.URL)
		}
	})

	t.Run("lists runs of a site", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&stdout)
		cmd.SetArgs([]string{"--db-dir", cfg.DBDir, ts.URL})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("history unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("history printed %d lines, want header and 2 runs:\n%s", len(lines), stdout.String())
		}
		for _, line := range lines[1:] {
			if strings.HasPrefix(line, "*") {
				t.Errorf("unchanged run marked as changed: %q", line)
			}
			if !strings.Contains(line, ts.URL+"/icon.png") {
				t.Errorf("expected best icon in %q", line)
			}
		}
	})

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()

		cmd := NewHistoryCmd()
		cmd.SetOut(io.Discard)
		cmd.SetArgs([]string{"--db-dir", t.TempDir()})
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for missing database")
		}
	})
}

func TestNewFactory(t *testing.T) {
	t.Parallel()

	ts := newSite(t, "secret")
	host := strings.TrimPrefix(ts.URL, "http://")

	cfg := newTestConfig(t)
	cfg.SiteConfigs.Sites[strings.Split(host, ":")[0]] = config.SiteConfig{
		Headers: map[string]string{"X-Site": "secret"},
	}
	factory := newFactory(cfg, newManifestCaches(), discardLogger())

	t.Run("site headers are sent", func(t *testing.T) {
		t.Parallel()

		si, err := factory(ts.URL)
		if err != nil {
			t.Fatalf("factory() unexpected error: %v", err)
		}
		icons, err := si.LoadWebsite(context.Background(), ts.URL, true)
		if err != nil {
			t.Fatalf("LoadWebsite() unexpected error: %v", err)
		}
		if len(icons) != 1 || icons[0].Kind != model.KindSiteFavicon {
			t.Errorf("LoadWebsite() = %v, want the declared favicon", icons)
		}
	})

	t.Run("invalid seed", func(t *testing.T) {
		t.Parallel()

		if _, err := factory("ftp://example.com"); !errors.Is(err, discovery.ErrInvalidURL) {
			t.Errorf("factory() error = %v, want ErrInvalidURL", err)
		}
	})

	t.Run("invalid blacklist pattern", func(t *testing.T) {
		t.Parallel()

		bad := newTestConfig(t)
		bad.SiteConfigs.Defaults.Blacklist = []string{"[unclosed"}
		if _, err := newFactory(bad, newManifestCaches(), discardLogger())("example.com"); !errors.Is(err, discovery.ErrInvalidPattern) {
			t.Errorf("factory() error = %v, want ErrInvalidPattern", err)
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Parallel()

		bad := newTestConfig(t)
		bad.ProxyAddress = "no-port"
		if _, err := newFactory(bad, newManifestCaches(), discardLogger())("example.com"); err == nil {
			t.Error("expected error for invalid proxy address")
		}
	})
}

func TestManifestCachesPerCredentials(t *testing.T) {
	t.Parallel()

	caches := newManifestCaches()
	public := caches.forSite(config.SiteConfig{Headers: map[string]string{"Accept-Language": "en"}})

	tests := []struct {
		name     string
		site     config.SiteConfig
		wantSame bool
	}{
		{
			name:     "same headers share",
			site:     config.SiteConfig{Headers: map[string]string{"accept-language": "en"}},
			wantSame: true,
		},
		{
			name: "extra authorization header",
			site: config.SiteConfig{Headers: map[string]string{"Accept-Language": "en", "Authorization": "Bearer a"}},
		},
		{
			name: "cookie",
			site: config.SiteConfig{Cookie: "sid=1", Headers: map[string]string{"Accept-Language": "en"}},
		},
		{
			name: "no headers",
			site: config.SiteConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if same := caches.forSite(tt.site) == public; same != tt.wantSame {
				t.Errorf("forSite() shares the public cache = %v, want %v", same, tt.wantSame)
			}
		})
	}
}

func TestNewFactoryManifestNotSharedAcrossCredentials(t *testing.T) {
	t.Parallel()

	// Every page declares the same manifest URL, which answers differently
	// depending on the cookie it receives.
	var ts *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><link rel="manifest" href="`+ts.URL+`/manifest.json"></head><body></body></html>`)
	})
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		src := "/public.png"
		if c, err := r.Cookie("sid"); err == nil && c.Value == "member" {
			src = "/member.png"
		}
		w.Header().Set("Content-Type", "application/manifest+json")
		_, _ = io.WriteString(w, `{"icons":[{"src":"`+src+`","sizes":"64x64","type":"image/png"}]}`)
	})
	for _, name := range []string{"/public.png", "/member.png"} {
		mux.HandleFunc(name, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes(64, 64))
		})
	}
	ts = httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	// Both hosts reach the test server; only localhost sends the cookie.
	port := ts.URL[strings.LastIndex(ts.URL, ":"):]
	cfg := newTestConfig(t)
	cfg.SiteConfigs.Sites["localhost"] = config.SiteConfig{Cookie: "sid=member"}
	factory := newFactory(cfg, newManifestCaches(), discardLogger())

	paths := func(seed string) []string {
		t.Helper()
		si, err := factory(seed)
		if err != nil {
			t.Fatalf("factory() unexpected error: %v", err)
		}
		icons, err := si.LoadWebsite(context.Background(), seed, false)
		if err != nil {
			t.Fatalf("LoadWebsite() unexpected error: %v", err)
		}
		var got []string
		for _, icon := range icons {
			got = append(got, icon.URL.Path)
		}
		return got
	}

	member := paths("http://localhost" + port)
	if len(member) == 0 || slices.ContainsFunc(member, func(p string) bool { return p != "/member.png" }) {
		t.Fatalf("member site icons = %v, want only /member.png", member)
	}
	public := paths(ts.URL)
	if len(public) == 0 || slices.ContainsFunc(public, func(p string) bool { return p != "/public.png" }) {
		t.Errorf("public site icons = %v, want only /public.png", public)
	}
}
