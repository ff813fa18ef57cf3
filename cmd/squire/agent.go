package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/agent"
)

var agentCmd = &cobra.Command{
	Use:   "agent <name>",
	Short: "Run a single producer agent",
	Long: `Run one producer agent as its own process. The agent subscribes to the
start topic, analyzes on every trigger, and publishes its outcome on its
done topic.`,
	Args: cobra.ExactArgs(1),
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(_ *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := squire.FromEnv()
	name := args[0]

	analyzer, ok := agent.Build(name)
	if !ok {
		return fmt.Errorf("unknown agent %q, registered: %s", name, strings.Join(agent.Names(), ", "))
	}

	b := newBroker(ctx, cfg)
	defer func() { _ = b.Disconnect(context.Background()) }()

	runner := agent.NewRunner(analyzer,
		agent.Transport(b),
		agent.StartTopic(cfg.Namespace.Start().String()),
		agent.DoneTopic(cfg.Namespace.Done(name).String()),
	)
	stop, err := runner.Listen(ctx)
	if err != nil {
		return err
	}
	defer stop()

	<-ctx.Done()
	return nil
}
