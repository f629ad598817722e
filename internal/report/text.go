package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// TextWriter outputs human-readable plain text summaries.
type TextWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	upper cases.Caser
	title cases.Caser
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showEmpty = show
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		upper:      cases.Upper(language.English),
		title:      cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *TextWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, "events by service", summary.ByService, true)
	w.writeCounts(&sb, "events by classification", summary.ByClassification, true)
	w.writeCounts(&sb, "detected tools", summary.ByTool, true)
	w.writeCounts(&sb, "top source addresses", summary.TopIPs, false)
	w.writeCounts(&sb, "events per minute", summary.PerMinute, false)
	w.writeRecent(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, ruleWidth))
	sb.WriteString("\n")
}

func (w *TextWriter) writeSection(sb *strings.Builder, name string) {
	w.writeRule(sb, "-")
	sb.WriteString(w.upper.String(name))
	sb.WriteString("\n")
	w.writeRule(sb, "-")
	sb.WriteString("\n")
}

func (w *TextWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	w.writeRule(sb, "=")
	sb.WriteString("                        LURE HONEYPOT REPORT\n")
	w.writeRule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Generated:    %s\n", formatTime(s.GeneratedAt))
	fmt.Fprintf(sb, "Total Events: %d\n", s.TotalEvents)
	fmt.Fprintf(sb, "Unique IPs:   %d\n", s.UniqueIPs)
	fmt.Fprintf(sb, "First Seen:   %s\n", formatTime(s.FirstSeen))
	fmt.Fprintf(sb, "Last Seen:    %s\n", formatTime(s.LastSeen))
	sb.WriteString("\n")
}

// writeCounts writes one tally section. Labels are title-cased when titled.
func (w *TextWriter) writeCounts(sb *strings.Builder, name string, counts []Count, titled bool) {
	if len(counts) == 0 && !w.showEmpty {
		return
	}
	w.writeSection(sb, name)
	if len(counts) == 0 {
		sb.WriteString("  None\n\n")
		return
	}

	width := 0
	for _, c := range counts {
		width = max(width, len(c.Key))
	}
	for _, c := range counts {
		label := c.Key
		if titled {
			label = w.title.String(label)
		}
		fmt.Fprintf(sb, "  %-*s  %d\n", width, label, c.Count)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeRecent(sb *strings.Builder, s *Summary) {
	if len(s.Recent) == 0 && !w.showEmpty {
		return
	}
	w.writeSection(sb, "recent events")
	if len(s.Recent) == 0 {
		sb.WriteString("  None\n\n")
		return
	}

	for _, e := range s.Recent {
		fmt.Fprintf(sb, "  #%d %s %-4s %-15s %-8s %s %s\n",
			e.ID,
			formatTime(e.Timestamp),
			e.Service,
			e.IP,
			e.Classification,
			orDash(e.RequestType),
			truncateString(orDash(e.Path), 40),
		)
		if e.Tool.Detected() {
			fmt.Fprintf(sb, "      tool: %s\n", e.Tool)
		}
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeFooter(sb *strings.Builder) {
	w.writeRule(sb, "=")
	sb.WriteString("Report generated by lure\n")
	w.writeRule(sb, "=")
}
