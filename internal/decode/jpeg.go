package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nao1215/siteicons/internal/model"
)

const (
	jpegSOI = 0xD8
	jpegEOI = 0xD9
)

// isSOF reports whether marker is a start-of-frame marker carrying the image
// dimensions. C4, C8 and CC share the range but are not frames.
func isSOF(marker byte) bool {
	switch {
	case marker >= 0xC0 && marker <= 0xC3,
		marker >= 0xC5 && marker <= 0xC7,
		marker >= 0xC9 && marker <= 0xCB,
		marker >= 0xCD && marker <= 0xCF:
		return true
	default:
		return false
	}
}

// JPEG walks the marker segments up to the first start-of-frame outside any
// embedded thumbnail and reads its dimensions.
func JPEG(r io.Reader) (model.IconSize, error) {
	soi := make([]byte, 2)
	if err := readFull(r, soi); err != nil {
		return model.IconSize{}, fmt.Errorf("read jpeg SOI: %w", err)
	}
	if soi[0] != 0xFF || soi[1] != jpegSOI {
		return model.IconSize{}, ErrBadHeader
	}

	depth := 0
	marker := make([]byte, 2)
	for {
		if err := readFull(r, marker); err != nil {
			return model.IconSize{}, fmt.Errorf("read jpeg marker: %w", err)
		}
		if marker[0] != 0xFF {
			return model.IconSize{}, fmt.Errorf("%w: expected marker, got 0x%02X", ErrInvalidJPEG, marker[0])
		}

		switch page := marker[1]; {
		case page == jpegSOI:
			depth++
			continue
		case page == jpegEOI:
			depth--
			if depth < 0 {
				return model.IconSize{}, fmt.Errorf("%w: unbalanced EOI", ErrInvalidJPEG)
			}
			continue
		case isSOF(page) && depth == 0:
			return readJPEGFrameSize(r)
		}

		length, err := readUint16BE(r)
		if err != nil {
			return model.IconSize{}, fmt.Errorf("read jpeg segment length: %w", err)
		}
		if length < 2 {
			return model.IconSize{}, fmt.Errorf("%w: segment length %d", ErrInvalidJPEG, length)
		}
		if _, err := io.CopyN(io.Discard, r, int64(length)-2); err != nil {
			return model.IconSize{}, fmt.Errorf("skip jpeg segment: %w", err)
		}
	}
}

// readJPEGFrameSize reads a SOF payload: length and precision, then height
// before width.
func readJPEGFrameSize(r io.Reader) (model.IconSize, error) {
	frame := make([]byte, 7)
	if err := readFull(r, frame); err != nil {
		return model.IconSize{}, fmt.Errorf("read jpeg frame: %w", err)
	}
	height := binary.BigEndian.Uint16(frame[3:5])
	width := binary.BigEndian.Uint16(frame[5:7])
	return model.NewIconSize(uint32(width), uint32(height)), nil
}

func readUint16BE(r io.Reader) (uint16, error) {
	buf := make([]byte, 2)
	if err := readFull(r, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}
