package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nao1215/siteicons/internal/model"
)

const (
	icoHeaderLen = 6
	icoEntryLen  = 16
	icoTypeIcon  = 1
)

// countingReader tracks how many bytes have been consumed from the ICO stream
// so embedded image offsets can be reached by skipping forward.
type countingReader struct {
	r   io.Reader
	pos int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

// ICO reads every image size listed in an icon directory.
//
// A directory entry whose width and height bytes are both 0 is treated as a
// PNG stored at the entry's data offset. That PNG is decoded for its size
// and the entry is dropped if it cannot be. All other entries use their
// literal width and height bytes; 0 is not promoted to 256.
func ICO(r io.Reader) (model.IconSizes, error) {
	cr := &countingReader{r: r}

	header := make([]byte, icoHeaderLen)
	if err := readFull(cr, header); err != nil {
		return model.IconSizes{}, fmt.Errorf("read ico header: %w", err)
	}
	reserved := binary.LittleEndian.Uint16(header[0:2])
	kind := binary.LittleEndian.Uint16(header[2:4])
	if reserved != 0 || kind != icoTypeIcon {
		return model.IconSizes{}, ErrBadHeader
	}
	count := int(binary.LittleEndian.Uint16(header[4:6]))

	directory := make([]byte, count*icoEntryLen)
	if err := readFull(cr, directory); err != nil {
		return model.IconSizes{}, fmt.Errorf("read ico directory: %w", err)
	}

	sizes := make([]model.IconSize, 0, count)
	for i := range count {
		entry := directory[i*icoEntryLen : (i+1)*icoEntryLen]
		width, height := entry[0], entry[1]

		if width != 0 || height != 0 {
			sizes = append(sizes, model.NewIconSize(uint32(width), uint32(height)))
			continue
		}

		offset := int64(binary.LittleEndian.Uint32(entry[12:16]))
		if offset < cr.pos {
			continue
		}
		if _, err := io.CopyN(io.Discard, cr, offset-cr.pos); err != nil {
			return model.IconSizes{}, fmt.Errorf("seek ico image %d: %w", i, err)
		}
		if size, err := PNG(cr); err == nil {
			sizes = append(sizes, size)
		}
	}

	result, err := model.SizesFromSlice(sizes)
	if err != nil {
		return model.IconSizes{}, fmt.Errorf("ico directory: %w", err)
	}
	return result, nil
}
