package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nao1215/siteicons/internal/model"
)

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	pngIHDR      = []byte("IHDR")
)

// pngHeaderLen covers the signature, the IHDR length and type, width and height.
const pngHeaderLen = 24

// PNG reads the size from the IHDR chunk, which must be the first chunk.
func PNG(r io.Reader) (model.IconSize, error) {
	header := make([]byte, pngHeaderLen)
	if err := readFull(r, header); err != nil {
		return model.IconSize{}, fmt.Errorf("read png header: %w", err)
	}

	if !bytes.Equal(header[0:8], pngSignature) || !bytes.Equal(header[12:16], pngIHDR) {
		return model.IconSize{}, ErrBadHeader
	}

	width := binary.BigEndian.Uint32(header[16:20])
	height := binary.BigEndian.Uint32(header[20:24])
	return model.NewIconSize(width, height), nil
}
