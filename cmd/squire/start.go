package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/broker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Trigger one analysis round",
	Long: `Publish the trigger envelope that opens an analysis round, then exit.
In degraded mode the trigger lands in the file spool, so agents running
in other processes on this host pick it up.`,
	RunE: runStart,
}

var startDocs []string

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringSliceVar(&startDocs, "meeting-docs", nil, "override the meeting document URLs for this round")
}

func runStart(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := squire.FromEnv()
	b := newBroker(ctx, cfg)
	defer func() { _ = b.Disconnect(context.Background()) }()

	payload := map[string]any{"event": "start"}
	if len(startDocs) > 0 {
		payload["meeting_docs"] = startDocs
	}

	topic := cfg.Namespace.Start().String()
	if err := broker.Publish(ctx, b, topic, payload); err != nil {
		return fmt.Errorf("publish start event: %w", err)
	}

	fmt.Printf("analysis round started on %s\n", topic)
	return nil
}
