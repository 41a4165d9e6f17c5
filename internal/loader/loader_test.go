package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/nao1215/siteicons/internal/decode"
	"github.com/nao1215/siteicons/internal/fetch"
	"github.com/nao1215/siteicons/internal/model"
)

func pngBytes(width, height uint32) []byte {
	buf := bytes.NewBufferString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(buf, binary.BigEndian, uint32(13))
	buf.WriteString("IHDR")
	_ = binary.Write(buf, binary.BigEndian, width)
	_ = binary.Write(buf, binary.BigEndian, height)
	buf.Write(make([]byte, 16))
	return buf.Bytes()
}

// explodingBody fails the test if it is ever read.
type explodingBody struct {
	t *testing.T
}

func (b explodingBody) Read([]byte) (int, error) {
	b.t.Error("body was read")
	return 0, io.EOF
}

func (explodingBody) Close() error { return nil }

type fakeGetter struct {
	resp *fetch.Response
	err  error
}

func (f fakeGetter) Get(context.Context, string, map[string]string) (*fetch.Response, error) {
	return f.resp, f.err
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestLoadInfoHintShortCircuit(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		contentType string
		sizes       string
		want        string
	}{
		{name: "png uses largest", contentType: "image/png", sizes: "16x16 32x32", want: "png 32x32"},
		{name: "jpeg", contentType: "image/jpeg", sizes: "100x50", want: "jpeg 100x50"},
		{name: "gif", contentType: "image/gif", sizes: "8x8", want: "gif 8x8"},
		{name: "ico keeps all", contentType: "image/vnd.microsoft.icon", sizes: "16x16 48x48 32x32", want: "ico 48x48 32x32 16x16"},
		{name: "svg sized by hint", contentType: "image/svg+xml", sizes: "any 64x64", want: "svg 64x64"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			header := http.Header{}
			header.Set("Content-Type", tc.contentType)
			l := New(fakeGetter{resp: &fetch.Response{Header: header, Body: explodingBody{t: t}}})

			info, err := l.LoadInfo(context.Background(), mustParse(t, "https://example.com/icon"), nil, tc.sizes)
			if err != nil {
				t.Fatalf("LoadInfo() unexpected error: %v", err)
			}
			if info.String() != tc.want {
				t.Errorf("LoadInfo() = %s, want %s", info, tc.want)
			}
		})
	}
}

func TestLoadOverHTTP(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/icon.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(192, 192))
	})
	mux.HandleFunc("/mislabeled", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngBytes(57, 57))
	})
	mux.HandleFunc("/plain.svg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10"></svg>`)
	})
	mux.HandleFunc("/untyped", func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write(pngBytes(10, 10))
	})
	mux.HandleFunc("/broken.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "GIF89a, certainly not a PNG header")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/auth.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(64, 64))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := fetch.NewClient()
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	l := New(client)

	testCases := []struct {
		name    string
		path    string
		sizes   string
		want    string
		wantErr error
	}{
		{name: "decoded png", path: "/icon.png", want: "png 192x192"},
		{name: "unknown mime sniffed", path: "/mislabeled", want: "png 57x57"},
		{name: "svg as text plain", path: "/plain.svg", want: "svg 20x10"},
		{name: "no content type without hint", path: "/untyped", wantErr: fetch.ErrNoContentType},
		{name: "no content type with hint", path: "/untyped", sizes: "32x32", want: "png 32x32"},
		{name: "decode failure", path: "/broken.png", wantErr: decode.ErrBadHeader},
		{name: "bad status", path: "/gone", wantErr: fetch.ErrBadStatus},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			icon, err := l.Load(context.Background(), mustParse(t, server.URL+tc.path), model.KindSiteFavicon, tc.sizes)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if icon.Info.String() != tc.want {
				t.Errorf("Load() info = %s, want %s", icon.Info, tc.want)
			}
			if icon.Kind != model.KindSiteFavicon {
				t.Errorf("Load() kind = %s, want site_favicon", icon.Kind)
			}
		})
	}

	t.Run("headers sent and recorded", func(t *testing.T) {
		t.Parallel()

		headers := map[string]string{"Authorization": "Bearer t"}
		icon, err := l.LoadWithHeaders(context.Background(), mustParse(t, server.URL+"/auth.png"), headers, model.KindAppIcon, "")
		if err != nil {
			t.Fatalf("LoadWithHeaders() unexpected error: %v", err)
		}
		if icon.Headers["Authorization"] != "Bearer t" {
			t.Errorf("headers not recorded: %v", icon.Headers)
		}
	})
}

func TestEscapeDataPayload(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		uri  string
		want string
	}{
		{
			uri:  "data:image/svg+xml,%3Csvg width='1' viewBox='0 0 1 1'/%3E",
			want: "data:image/svg+xml,%3Csvg%20width='1'%20viewBox='0%200%201%201'/%3E",
		},
		{
			uri:  `data:text/plain,a"b{c}`,
			want: "data:text/plain,a%22b%7Bc%7D",
		},
		{
			uri:  "data:image/png;base64,iVBORw0KGgo=",
			want: "data:image/png;base64,iVBORw0KGgo=",
		},
		{
			uri:  "data:no-comma",
			want: "data:no-comma",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.uri, func(t *testing.T) {
			t.Parallel()

			if got := escapeDataPayload(tc.uri); got != tc.want {
				t.Errorf("escapeDataPayload() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestLoadDataURI(t *testing.T) {
	t.Parallel()

	l := New(fakeGetter{err: errors.New("network must not be used")})

	testCases := []struct {
		name    string
		uri     string
		sizes   string
		want    string
		wantErr error
	}{
		{
			name: "base64 png",
			uri:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(48, 24)),
			want: "png 48x24",
		},
		{
			name: "percent encoded svg",
			uri:  "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='12' height='12'%3E%3C/svg%3E",
			want: "svg 12x12",
		},
		{
			name: "svg with unescaped spaces and non-ascii",
			uri:  "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='24' height='16'%3E%3Ctitle%3Ecaf%C3%A9 logo%3C/title%3E%3C/svg%3E",
			want: "svg 24x16",
		},
		{
			name:  "hint wins",
			uri:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(48, 24)),
			sizes: "16x16",
			want:  "png 16x16",
		},
		{
			name:    "malformed",
			uri:     "data:image/png;base64",
			wantErr: ErrDataURI,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			info, err := l.LoadInfo(context.Background(), mustParse(t, tc.uri), nil, tc.sizes)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("LoadInfo() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadInfo() unexpected error: %v", err)
			}
			if info.String() != tc.want {
				t.Errorf("LoadInfo() = %s, want %s", info, tc.want)
			}
		})
	}
}

// The MIME table and the magic-number table are fallbacks for each other:
// every format reachable by one must be reachable by the other.
func TestDispatchTablesInSync(t *testing.T) {
	t.Parallel()

	magic := map[model.Format][]byte{
		model.FormatPNG:  []byte("\x89P"),
		model.FormatICO:  {0x00, 0x00},
		model.FormatJPEG: {0xFF, 0xD8},
		model.FormatGIF:  []byte("GI"),
		model.FormatSVG:  []byte("<s"),
	}

	byMime := make(map[model.Format]bool)
	for _, f := range mimeFormats {
		byMime[f] = true
	}

	for _, f := range model.Formats {
		if !byMime[f] {
			t.Errorf("format %s has no media type", f)
		}
		if got := mimeFormats[f.MimeType()]; got != f {
			t.Errorf("canonical media type %s maps to %s, want %s", f.MimeType(), got, f)
		}
		if got := decode.Sniff(magic[f]); got != f {
			t.Errorf("Sniff(%q) = %s, want %s", magic[f], got, f)
		}
	}
}
