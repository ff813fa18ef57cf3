// Command squire runs the analysis workflow. Each subcommand is one
// deployable role, so the whole system can live in a single process or
// be spread across several, coordinating purely through topics.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Load SQUIRE_* settings from a local .env file when present.
	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/broker"

	// Register the built-in analyzers.
	_ "github.com/rayhaanfarooq/squire/agent/meeting"
	_ "github.com/rayhaanfarooq/squire/agent/pr"
	_ "github.com/rayhaanfarooq/squire/agent/team"
)

var version = "0.1.0"

var log zerolog.Logger

var debugFlag bool

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

var rootCmd = &cobra.Command{
	Use:   "squire",
	Short: "Coordinate rounds of analysis agents over pub/sub",
	Long: `Squire coordinates rounds of analysis agents over a shared pub/sub
transport. A trigger fans out to every producer agent, a barrier waits for
the full set of results, and a manager synthesizes and stores the final
report.

serve runs the whole workflow plus the HTTP API in one process. The agent,
join, and manager subcommands each run a single role for the multi-process
layout. Without SQUIRE_BROKER_URL configured the transport degrades to a
shared file spool, so the multi-process layout works on one host with no
broker at all.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if debugFlag {
			slog.SetDefault(slog.New(
				zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelDebug}),
			))
		}
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newBroker(ctx context.Context, cfg squire.Config) broker.Broker {
	return broker.New(ctx,
		broker.URL(cfg.BrokerURL),
		broker.Credentials(cfg.BrokerUsername, cfg.BrokerPassword),
		broker.SpoolDir(cfg.SpoolDir),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
