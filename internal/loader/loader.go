package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"github.com/nao1215/siteicons/internal/decode"
	"github.com/nao1215/siteicons/internal/fetch"
	"github.com/nao1215/siteicons/internal/model"
)

// ErrDataURI is returned when a data: URI cannot be parsed.
var ErrDataURI = errors.New("invalid data uri")

// mimeFormats maps media types to the decoder format they select.
// SVG served as text/plain is common enough to accept.
var mimeFormats = map[string]model.Format{
	"image/png":                model.FormatPNG,
	"image/jpeg":               model.FormatJPEG,
	"image/gif":                model.FormatGIF,
	"image/x-icon":             model.FormatICO,
	"image/vnd.microsoft.icon": model.FormatICO,
	"image/svg+xml":            model.FormatSVG,
	"text/plain":               model.FormatSVG,
}

// Getter is the fetch capability the loader needs.
type Getter interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*fetch.Response, error)
}

// Loader fetches icons and works out their format and size.
type Loader struct {
	client Getter
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a Loader that fetches through client.
func New(client Getter, opts ...Option) *Loader {
	l := &Loader{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads the icon at u. sizes is the declared-sizes hint, such as an
// HTML sizes attribute; pass "" when there is none.
func (l *Loader) Load(ctx context.Context, u *url.URL, kind model.IconKind, sizes string) (model.Icon, error) {
	return l.LoadWithHeaders(ctx, u, nil, kind, sizes)
}

// LoadWithHeaders is Load with extra request headers. The headers are
// recorded on the returned Icon.
func (l *Loader) LoadWithHeaders(ctx context.Context, u *url.URL, headers map[string]string, kind model.IconKind, sizes string) (model.Icon, error) {
	info, err := l.LoadInfo(ctx, u, headers, sizes)
	if err != nil {
		return model.Icon{}, err
	}
	return model.NewIcon(u, headers, kind, info), nil
}

// LoadInfo returns the format and size of the image at u.
//
// When the media type is known and sizes parses, the hint is trusted and the
// body is never read. Otherwise the body is decoded with the decoder for the
// media type, or for the sniffed magic number when the media type is not an
// image type we know.
func (l *Loader) LoadInfo(ctx context.Context, u *url.URL, headers map[string]string, sizes string) (model.IconInfo, error) {
	hint, hintErr := model.ParseIconSizes(sizes)
	hasHint := hintErr == nil

	mediaType, body, err := l.open(ctx, u, headers)
	if err != nil {
		return model.IconInfo{}, err
	}
	defer body.Close()

	format, known := mimeFormats[mediaType]
	if known && hasHint {
		return infoFromHint(format, hint), nil
	}

	br := bufio.NewReader(body)
	if !known {
		if mediaType == "" && !hasHint {
			return model.IconInfo{}, fmt.Errorf("load %s: %w", redact(u), fetch.ErrNoContentType)
		}
		head, _ := br.Peek(decode.MagicLen) //nolint:errcheck // a short body is reported by the decoder
		format = decode.Sniff(head)
		if mediaType == "" {
			return infoFromHint(format, hint), nil
		}
	}

	info, err := decode.Decode(format, br)
	if err != nil {
		return model.IconInfo{}, fmt.Errorf("load %s: %w", redact(u), err)
	}
	return info, nil
}

// open returns the lowercased media type and the body of u. The media type
// is "" when the response has no usable Content-Type.
func (l *Loader) open(ctx context.Context, u *url.URL, headers map[string]string) (string, io.ReadCloser, error) {
	if u.Scheme == "data" {
		du, err := dataurl.DecodeString(escapeDataPayload(u.String()))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrDataURI, err)
		}
		return strings.ToLower(du.MediaType.ContentType()), io.NopCloser(bytes.NewReader(du.Data)), nil
	}

	resp, err := l.client.Get(ctx, u.String(), headers)
	if err != nil {
		return "", nil, err
	}

	mediaType, err := resp.MediaType()
	if err != nil {
		l.logger.Debug("response without usable content type", "url", u.String(), "error", err)
		mediaType = ""
	}
	return mediaType, resp.Body, nil
}

func infoFromHint(format model.Format, hint model.IconSizes) model.IconInfo {
	switch format {
	case model.FormatICO:
		return model.ICOInfo(hint)
	case model.FormatSVG:
		return model.SVGInfo(hint.Largest())
	default:
		return model.NewRasterInfo(format, hint.Largest())
	}
}

// dataUnsafe lists the printable ASCII bytes the data URI parser rejects in
// a payload. Inline SVG data URIs keep spaces readable, so they are escaped
// here.
const dataUnsafe = " <>#\"{}|\\^[]`"

// escapeDataPayload percent-escapes the payload bytes of a non-base64 data
// URI that the parser would reject. Base64 payloads are returned unchanged.
func escapeDataPayload(uri string) string {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 || strings.HasSuffix(strings.ToLower(uri[:comma]), ";base64") {
		return uri
	}

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(uri))
	b.WriteString(uri[:comma+1])
	for i := comma + 1; i < len(uri); i++ {
		c := uri[i]
		if c < 0x20 || c >= 0x7F || strings.IndexByte(dataUnsafe, c) >= 0 {
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0F])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// redact shortens data: URIs for error messages.
func redact(u *url.URL) string {
	s := u.String()
	if u.Scheme == "data" && len(s) > 48 {
		return s[:48] + "..."
	}
	return s
}
