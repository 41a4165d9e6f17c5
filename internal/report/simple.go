package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/siteicons/internal/model"
)

// SimpleWriter outputs one line per icon. With more than one report, each
// site's icons follow a "# <site>" header line.
type SimpleWriter struct {
	baseWriter

	// verbose adds a summary line per site.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose adds the icon count and duration of each discovery.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the icons of every report.
func (w *SimpleWriter) Write(reports ...*model.DiscoveryReport) (int, error) {
	var sb strings.Builder
	headers := len(reports) > 1

	for i, report := range reports {
		if headers {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("# " + report.Site + "\n")
			if report.Error != "" {
				sb.WriteString("# error: " + report.Error + "\n")
			}
		}
		if w.verbose {
			sb.WriteString(fmt.Sprintf("# %d icons in %s\n", len(report.Icons), report.Duration.Round(time.Millisecond)))
		}
		for _, icon := range report.Icons {
			sb.WriteString(icon.String())
			sb.WriteString("\n")
		}
	}

	return w.output.Write([]byte(sb.String()))
}
