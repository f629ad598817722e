package main

import (
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/nao1215/lure/internal/report"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all events as JSON Lines",
		Long: `Export writes every stored event in append order, one JSON object per line.

Examples:
  # Stream to another tool
  lure export | jq 'select(.classification == "scanner")'

  # Write a compressed archive
  lure export --gzip -o archive/events.jsonl.gz`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Write events to specified file path")
	cmd.Flags().BoolP("gzip", "z", false, "Compress output with gzip")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	compress, err := cmd.Flags().GetBool("gzip")
	if err != nil {
		return err
	}

	events, err := loadAllEvents(cmd, cfg)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd, path)
	if err != nil {
		return err
	}

	var opts []report.JSONLWriterOption
	if compress {
		opts = append(opts, report.WithGzip(gzip.BestCompression))
	}
	if _, err := report.NewJSONLWriter(out, opts...).WriteEvents(events); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}
