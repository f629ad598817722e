package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/lure/internal/config"
	"github.com/nao1215/lure/internal/database"
	"github.com/nao1215/lure/internal/model"
)

// NewEventsCmd creates the events command.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the most recent recorded events",
		Long: `Events prints the newest events from the event store, newest first.

The store is opened read-only, so this works while "lure serve" is running.

Examples:
  # Show the last 20 events
  lure events

  # Show the last 100 events including captured payloads
  lure events -n 100 --payload`,
		Args: cobra.NoArgs,
		RunE: runEventsCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultRecentLimit, "Number of events to show")
	cmd.Flags().BoolP("payload", "p", false, "Include captured payloads such as passwords")

	return cmd
}

// runEventsCmd executes the events command.
func runEventsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	showPayload, err := cmd.Flags().GetBool("payload")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	db, err := database.Open(cfg.DBDir, database.ReadOnlyOptions())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			fmt.Fprintln(out, "No events recorded yet.")
			return nil
		}
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer db.Close()

	events, err := db.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No events recorded yet.")
		return nil
	}

	printEvents(out, events, showPayload)
	return nil
}

// classificationColor returns the color classification is printed in.
func classificationColor(c model.Classification) *color.Color {
	switch c {
	case model.ClassificationScanner:
		return color.New(color.FgRed, color.Bold)
	case model.ClassificationBot:
		return color.New(color.FgYellow)
	case model.ClassificationHuman:
		return color.New(color.FgGreen)
	default:
		return color.New(color.Faint)
	}
}

// printEvents writes one aligned row per event.
func printEvents(w io.Writer, events []model.Event, showPayload bool) {
	header := color.New(color.Bold)
	header.Fprintf(w, "%-6s %-20s %-4s %-21s %-8s %-10s %-18s %s\n",
		"ID", "TIME", "SVC", "REMOTE", "REQUEST", "CLASS", "TOOL", "PATH")

	for _, e := range events {
		remote := e.IP + ":" + strconv.Itoa(e.Port)
		class := classificationColor(e.Classification).Sprintf("%-10s", e.Classification)
		fmt.Fprintf(w, "%-6d %-20s %-4s %-21s %-8s %s %-18s %s\n",
			e.ID,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Service,
			remote,
			dash(e.RequestType),
			class,
			dash(string(e.Tool)),
			dash(e.Path),
		)
		if showPayload && e.Payload != "" {
			fmt.Fprintf(w, "       payload: %q\n", e.Payload)
		}
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
