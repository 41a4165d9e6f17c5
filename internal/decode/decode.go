package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nao1215/siteicons/internal/model"
)

// MagicLen is the number of leading bytes Sniff inspects.
const MagicLen = 2

// magic maps leading bytes to formats. Anything unmatched is tried as SVG.
var magic = []struct {
	prefix []byte
	format model.Format
}{
	{prefix: []byte{0x89, 'P'}, format: model.FormatPNG},
	{prefix: []byte{0x00, 0x00}, format: model.FormatICO},
	{prefix: []byte{0xFF, 0xD8}, format: model.FormatJPEG},
	{prefix: []byte("GI"), format: model.FormatGIF},
}

// Sniff returns the format indicated by the first MagicLen bytes of a file.
func Sniff(head []byte) model.Format {
	for _, m := range magic {
		if bytes.HasPrefix(head, m.prefix) {
			return m.format
		}
	}
	return model.FormatSVG
}

type decoder func(io.Reader) (model.IconInfo, error)

var decoders = map[model.Format]decoder{
	model.FormatPNG:  rasterDecoder(model.FormatPNG, PNG),
	model.FormatJPEG: rasterDecoder(model.FormatJPEG, JPEG),
	model.FormatGIF:  rasterDecoder(model.FormatGIF, GIF),
	model.FormatICO: func(r io.Reader) (model.IconInfo, error) {
		sizes, err := ICO(r)
		if err != nil {
			return model.IconInfo{}, err
		}
		return model.ICOInfo(sizes), nil
	},
	model.FormatSVG: func(r io.Reader) (model.IconInfo, error) {
		size, ok, err := SVG(r)
		if err != nil {
			return model.IconInfo{}, err
		}
		if !ok {
			return model.UnsizedSVGInfo(), nil
		}
		return model.SVGInfo(size), nil
	},
}

func rasterDecoder(format model.Format, fn func(io.Reader) (model.IconSize, error)) decoder {
	return func(r io.Reader) (model.IconInfo, error) {
		size, err := fn(r)
		if err != nil {
			return model.IconInfo{}, err
		}
		return model.NewRasterInfo(format, size), nil
	}
}

// Decode reads the dimensions of an image known to be in format.
func Decode(format model.Format, r io.Reader) (model.IconInfo, error) {
	fn, ok := decoders[format]
	if !ok {
		return model.IconInfo{}, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	info, err := fn(r)
	if err != nil {
		return model.IconInfo{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return info, nil
}

// readFull reads exactly len(buf) bytes, reporting a short stream as
// io.ErrUnexpectedEOF even when nothing was read.
func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
