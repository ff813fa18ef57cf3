package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/manager"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Run the manager consumer",
	Long: `Run the manager as its own process. It consumes join envelopes,
synthesizes the final report, stores it for API access, and announces it
on the report topic.`,
	RunE: runManager,
}

func init() {
	rootCmd.AddCommand(managerCmd)
}

func runManager(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := squire.FromEnv()
	b := newBroker(ctx, cfg)
	defer func() { _ = b.Disconnect(context.Background()) }()

	mgr := manager.New(
		manager.Transport(b),
		manager.DBPath(cfg.DBPath),
		manager.JoinTopic(cfg.Namespace.Join().String()),
		manager.ReportTopic(cfg.Namespace.Report().String()),
	)
	stop, err := mgr.Listen(ctx)
	if err != nil {
		return err
	}
	defer stop()

	<-ctx.Done()
	return nil
}
