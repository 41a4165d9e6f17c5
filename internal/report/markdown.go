package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/siteicons/internal/model"
)

// kinds lists icon kinds from most to least preferred for display.
var kinds = []model.IconKind{model.KindSiteLogo, model.KindSiteFavicon, model.KindAppIcon}

// MarkdownWriter outputs reports in Markdown format, one section per site.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the reports in Markdown format.
func (w *MarkdownWriter) Write(reports ...*model.DiscoveryReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Site Icons Report")
	md.PlainText("")

	for _, report := range reports {
		w.writeSite(md, report)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSite writes the section of one report.
func (w *MarkdownWriter) writeSite(md *markdown.Markdown, report *model.DiscoveryReport) {
	md.H2(report.Site)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.Site + "`"},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(time.Millisecond).String()},
			{"Mode", modeText(report.Fast)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	if len(report.Icons) == 0 {
		if report.Error == "" {
			md.Note("No icons found.")
			md.PlainText("")
		}
		return
	}

	if best, ok := report.Best(); ok {
		md.Tip(fmt.Sprintf("Best icon: %s (%s, %s)", truncateString(best.URLString(), 80), KindLabel(best.Kind), best.Info))
		md.PlainText("")
	}

	rows := make([][]string, len(report.Icons))
	for i, icon := range report.Icons {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			KindLabel(icon.Kind),
			icon.Info.Format().String(),
			sizeLabel(icon.Info),
			truncateString(icon.URLString(), 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Kind", "Type", "Size", "URL"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
}

// writePieChart writes a mermaid pie chart of icons per kind.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.DiscoveryReport) {
	counts := report.CountByKind()
	if len(counts) < 2 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Icons by Kind"),
		piechart.WithShowData(true),
	)
	for _, kind := range kinds {
		if n := counts[kind]; n > 0 {
			chart.LabelAndIntValue(KindLabel(kind), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [siteicons](https://github.com/nao1215/siteicons)*")
}

// KindLabel returns the display name of kind, such as "Site Favicon".
func KindLabel(kind model.IconKind) string {
	return cases.Title(language.English).String(strings.ReplaceAll(kind.String(), "_", " "))
}

func modeText(fast bool) string {
	if fast {
		return "fast (first good answer)"
	}
	return "full"
}

func statusText(report *model.DiscoveryReport) string {
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	return "✅ " + strconv.Itoa(len(report.Icons)) + " icon(s)"
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
