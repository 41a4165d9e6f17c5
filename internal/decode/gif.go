package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nao1215/siteicons/internal/model"
)

// GIF reads the logical screen size that follows the "GIF87a"/"GIF89a" signature.
func GIF(r io.Reader) (model.IconSize, error) {
	header := make([]byte, 10)
	if err := readFull(r, header); err != nil {
		return model.IconSize{}, fmt.Errorf("read gif header: %w", err)
	}
	if header[0] != 'G' || header[1] != 'I' {
		return model.IconSize{}, ErrBadHeader
	}

	width := binary.LittleEndian.Uint16(header[6:8])
	height := binary.LittleEndian.Uint16(header[8:10])
	return model.NewIconSize(uint32(width), uint32(height)), nil
}
