package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/lure/internal/config"
	"github.com/nao1215/lure/internal/database"
	"github.com/nao1215/lure/internal/model"
	"github.com/nao1215/lure/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded activity",
		Long: `Report aggregates every stored event: counts per service, classification
and detected tool, activity per minute, the busiest source addresses and the
most recent events.

Examples:
  # Print a text report
  lure report

  # Write a Markdown report with a tool pie chart
  lure report --markdown -o reports/today.md

  # JSON for other tools
  lure report --json | jq .summary.by_tool`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Int("top", report.DefaultTopIPs, "Number of source addresses to rank")
	cmd.Flags().Int("recent", report.DefaultRecent, "Number of recent events to include")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
	recent, err := cmd.Flags().GetInt("recent")
	if err != nil {
		return err
	}

	events, err := loadAllEvents(cmd, cfg)
	if err != nil {
		return err
	}
	summary := report.Summarize(events, report.WithTopIPs(top), report.WithRecent(recent))

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	if err := writeReport(out, cfg, summary); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}

// loadAllEvents reads every stored event in append order. A store that
// does not exist yet yields no events.
func loadAllEvents(cmd *cobra.Command, cfg *config.Config) ([]model.Event, error) {
	db, err := database.Open(cfg.DBDir, database.ReadOnlyOptions())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}
	defer db.Close()
	return db.All(cmd.Context())
}

// writeReport renders summary in the format selected by cfg.
func writeReport(out io.Writer, cfg *config.Config, summary *report.Summary) error {
	var err error
	switch {
	case cfg.JSONReport:
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteReport(summary, getVersion())
	case cfg.MarkdownReport:
		_, err = report.NewMarkdownWriter(out).Write(summary)
	default:
		_, err = report.NewTextWriter(out).Write(summary)
	}
	return err
}
