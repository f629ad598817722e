package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/lure/internal/model"
)

// MarkdownWriter outputs summaries in Markdown for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter

	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeClassifications(md, summary)
	w.writeTools(md, summary)
	w.writeCountTable(md, "Events by Service", "Service", summary.ByService, true)
	w.writeCountTable(md, "Top Source Addresses", "Address", summary.TopIPs, false)
	w.writeCountTable(md, "Events per Minute", "Minute (UTC)", summary.PerMinute, false)
	w.writeRecent(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Lure Honeypot Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", formatTime(s.GeneratedAt)},
			{"Total Events", strconv.Itoa(s.TotalEvents)},
			{"Unique IPs", strconv.Itoa(s.UniqueIPs)},
			{"First Seen", formatTime(s.FirstSeen)},
			{"Last Seen", formatTime(s.LastSeen)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeClassifications(md *markdown.Markdown, s *Summary) {
	md.H2("Classification Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Classifications()))
	for _, c := range model.Classifications() {
		rows = append(rows, []string{
			w.title.String(string(c)),
			strconv.Itoa(countOf(s.ByClassification, string(c))),
		})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(s.TotalEvents) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Classification", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, s)
}

// writeAlert writes an alert keyed to the most severe activity seen.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	scanners := countOf(s.ByClassification, string(model.ClassificationScanner))
	bots := countOf(s.ByClassification, string(model.ClassificationBot))
	switch {
	case scanners > 0:
		md.Cautionf("%d interaction(s) came from known attack tools.", scanners)
	case bots > 0:
		md.Warningf("%d interaction(s) were made at machine speed.", bots)
	case s.TotalEvents > 0:
		md.Note("Only human or unclassified activity was recorded.")
	default:
		md.Tip("No activity recorded yet.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTools(md *markdown.Markdown, s *Summary) {
	md.H2("Detected Tools")
	md.PlainText("")

	if len(s.ByTool) == 0 {
		md.PlainText("No attack tools detected.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Detected Tools"),
		piechart.WithShowData(true),
	)
	for _, c := range s.ByTool {
		chart.LabelAndIntValue(c.Key, uint64(c.Count))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	w.writeCountTable(md, "", "Tool", s.ByTool, false)
}

// writeCountTable writes a two-column tally table. An empty heading omits
// the section header.
func (w *MarkdownWriter) writeCountTable(md *markdown.Markdown, heading, label string, counts []Count, titled bool) {
	if heading != "" {
		md.H2(heading)
		md.PlainText("")
	}
	if len(counts) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(counts))
	for i, c := range counts {
		key := c.Key
		if titled {
			key = w.title.String(key)
		}
		rows[i] = []string{"`" + key + "`", strconv.Itoa(c.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{label, "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecent(md *markdown.Markdown, s *Summary) {
	md.H2("Recent Events")
	md.PlainText("")

	if len(s.Recent) == 0 {
		md.PlainText("No events recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Recent))
	for i, e := range s.Recent {
		rows[i] = []string{
			strconv.FormatInt(e.ID, 10),
			formatTime(e.Timestamp),
			string(e.Service),
			e.IP,
			cell(orDash(e.RequestType)),
			cell(truncateString(orDash(e.Path), 40)),
			orDash(string(e.Tool)),
			string(e.Classification),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Time", "Service", "IP", "Request", "Path", "Tool", "Classification"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [lure](https://github.com/nao1215/lure)*")
}

// cell escapes table separators in captured values.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
