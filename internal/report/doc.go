// Package report summarizes recorded events and renders the summary.
//
// Summarize aggregates a slice of events into a Summary: counts per
// service, classification and tool, events per minute, the busiest source
// addresses and the most recent events. Writers render a Summary:
//   - TextWriter: plain text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a mermaid pie chart of detected tools
//
// JSONLWriter is separate. It streams raw events one JSON object per line,
// optionally gzip-compressed, for loading into other systems.
package report
