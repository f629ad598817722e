package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for lure.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lure",
		Short: "Multi-protocol honeypot that records and classifies attackers",
		Long: `lure is a low-interaction honeypot. It emulates a web server, an SSH
login prompt and an FTP server, answers with plausible decoys and records
every interaction with the tool it was fingerprinted as and whether it looked
human, automated or like a known scanner.

Events are stored in a local SQLite database that the events, report and
export commands read while the honeypot keeps running.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .lure in current or home directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Event store directory (default: XDG data directory)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewEventsCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
