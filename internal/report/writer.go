package report

import (
	"io"
	"strings"

	"github.com/nao1215/siteicons/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the reports to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(reports ...*model.DiscoveryReport) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// sizeLabel returns the size part of an icon's info, or "-" for an SVG
// without a size.
func sizeLabel(info model.IconInfo) string {
	label := strings.TrimSpace(strings.TrimPrefix(info.String(), info.Format().String()))
	if label == "" {
		return "-"
	}
	return label
}
