package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/barrier"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Run the barrier coordinator",
	Long: `Run the barrier coordinator as its own process. It collects the done
payloads of every configured agent and, once the full set has reported,
publishes exactly one combined join envelope per round.`,
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func runJoin(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := squire.FromEnv()
	b := newBroker(ctx, cfg)
	defer func() { _ = b.Disconnect(context.Background()) }()

	coord := barrier.New(
		barrier.Transport(b),
		barrier.Expecting(cfg.Agents...),
		barrier.JoinTopic(cfg.Namespace.Join().String()),
	)
	detach, err := barrier.Attach(ctx, coord, b, func(producer string) string {
		return cfg.Namespace.Done(producer).String()
	})
	if err != nil {
		return err
	}
	defer detach()

	slog.Info("join coordinator waiting",
		slog.String("producers", strings.Join(cfg.Agents, ",")),
		slog.String("topic", cfg.Namespace.Join().String()),
	)

	<-ctx.Done()
	return nil
}
