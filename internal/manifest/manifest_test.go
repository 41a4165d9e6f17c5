package manifest

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/siteicons/internal/fetch"
	"github.com/nao1215/siteicons/internal/loader"
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

type testServer struct {
	*httptest.Server
	manifestHits atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		ts.manifestHits.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/manifest+json")
		_, _ = io.WriteString(w, `{
			"name": "Example",
			"icons": [
				{"src": "icons/192.png", "sizes": "192x192", "type": "image/png"},
				{"src": "/missing.png", "sizes": "512x512"},
				{"src": "", "sizes": "48x48"},
				{"src": "icons/raw.png"}
			]
		}`)
	})
	mux.HandleFunc("/icons/192.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(192, 192))
	})
	mux.HandleFunc("/icons/raw.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(96, 96))
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, _ *http.Request) {
		ts.manifestHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"icons": [`)
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()

	client, err := fetch.NewClient()
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	return New(client, loader.New(client), opts...)
}

func TestLoaderLoad(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	l := newLoader(t)
	u, _ := url.Parse(ts.URL + "/manifest.json")

	icons, err := l.Load(context.Background(), u)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	want := []string{
		ts.URL + "/icons/192.png app_icon png 192x192",
		ts.URL + "/icons/raw.png app_icon png 96x96",
	}
	if len(icons) != len(want) {
		t.Fatalf("Load() returned %d icons, want %d: %v", len(icons), len(want), icons)
	}
	for i, icon := range icons {
		if icon.String() != want[i] {
			t.Errorf("icon %d = %s, want %s", i, icon, want[i])
		}
	}
}

func TestLoaderSingleFlight(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	cache := NewMemoCache()
	// Two loaders sharing one cache behave like one process-wide cache.
	a, b := newLoader(t, WithCache(cache)), newLoader(t, WithCache(cache))
	u, _ := url.Parse(ts.URL + "/manifest.json")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := a
			if i%2 == 1 {
				l = b
			}
			if icons, err := l.Load(context.Background(), u); err != nil || len(icons) != 2 {
				t.Errorf("Load() = %d icons, %v", len(icons), err)
			}
		}()
	}
	wg.Wait()

	if _, err := a.Load(context.Background(), u); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if hits := ts.manifestHits.Load(); hits != 1 {
		t.Errorf("manifest fetched %d times, want 1", hits)
	}

	cache.Clear()
	if _, err := a.Load(context.Background(), u); err != nil {
		t.Fatalf("Load() after Clear unexpected error: %v", err)
	}
	if hits := ts.manifestHits.Load(); hits != 2 {
		t.Errorf("manifest fetched %d times after Clear, want 2", hits)
	}
}

func TestLoaderErrorsAreCached(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	cache := NewMemoCache()
	l := newLoader(t, WithCache(cache))
	u, _ := url.Parse(ts.URL + "/broken.json")

	_, err1 := l.Load(context.Background(), u)
	_, err2 := l.Load(context.Background(), u)
	if err1 == nil || err2 == nil {
		t.Fatalf("Load() errors = %v, %v; want both non-nil", err1, err2)
	}
	if hits := ts.manifestHits.Load(); hits != 1 {
		t.Errorf("broken manifest fetched %d times, want 1", hits)
	}

	missing, _ := url.Parse(ts.URL + "/nope.json")
	if _, err := l.Load(context.Background(), missing); !errors.Is(err, fetch.ErrBadStatus) {
		t.Errorf("Load() error = %v, want ErrBadStatus", err)
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d results, want 2", cache.Len())
	}
}

func TestMemoCacheContextErrorsNotKept(t *testing.T) {
	t.Parallel()

	cache := NewMemoCache()
	calls := 0
	fn := func(context.Context) ([]model.Icon, error) {
		calls++
		if calls == 1 {
			return nil, context.DeadlineExceeded
		}
		return []model.Icon{}, nil
	}

	if _, err := cache.Do(context.Background(), "k", fn); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v, want DeadlineExceeded", err)
	}
	if _, err := cache.Do(context.Background(), "k", fn); err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestMemoCacheCallerCancel(t *testing.T) {
	t.Parallel()

	cache := NewMemoCache()
	release := make(chan struct{})
	fn := func(ctx context.Context) ([]model.Icon, error) {
		<-release
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cache.Do(ctx, "k", fn); !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want Canceled", err)
	}
	close(release)

	// The shared fetch ran on a context detached from the cancelled caller.
	icons, err := cache.Do(context.Background(), "k", fn)
	if err != nil {
		t.Errorf("Do() unexpected error: %v", err)
	}
	if len(icons) != 0 {
		t.Errorf("Do() = %v, want empty", icons)
	}
}
