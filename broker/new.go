package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/fogfish/opts"
	"github.com/nats-io/nats.go"

	"github.com/rayhaanfarooq/squire/internal/spool"
	"github.com/rayhaanfarooq/squire/pkg/natsx"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
)

// DefaultSpoolDir is where the degraded-mode file queue lives when no
// directory is configured.
const DefaultSpoolDir = ".squire-spool"

type config struct {
	url          string
	username     string
	password     string
	spoolDir     string
	pollInterval time.Duration
	retention    time.Duration
}

var (
	// URL points at a real broker backend. Its presence is what switches
	// the transport out of degraded mode.
	URL = opts.ForName[config, string]("url")
	// SpoolDir overrides DefaultSpoolDir for degraded mode.
	SpoolDir = opts.ForName[config, string]("spoolDir")
	// PollInterval tunes how often degraded-mode consumption loops scan
	// the spool.
	PollInterval = opts.ForName[config, time.Duration]("pollInterval")
	// Retention tunes how long spooled envelopes survive before sweeping.
	Retention = opts.ForName[config, time.Duration]("retention")
)

// Credentials sets the username and password presented to a real broker
// backend. Ignored in degraded mode.
func Credentials(username, password string) opts.Option[config] {
	return opts.Type[config](func(c *config) error {
		c.username = username
		c.password = password
		return nil
	})
}

func defaultConfig() config {
	return config{
		spoolDir:     DefaultSpoolDir,
		pollInterval: spool.DefaultPollInterval,
		retention:    spool.DefaultRetention,
	}
}

// New selects the transport mode. With a URL configured it connects to the
// real broker; if that fails, or no URL is configured, it degrades to the
// file-spool transport so the workflow keeps running. Callers interact
// with the returned Broker identically in either mode.
func New(ctx context.Context, options ...opts.Option[config]) Broker {
	c := defaultConfig()
	if err := opts.Apply(&c, options); err != nil {
		panic(err)
	}

	if c.url != "" {
		var connOpts []nats.Option
		if c.username != "" {
			connOpts = append(connOpts, nats.UserInfo(c.username, c.password))
		}
		nc, err := natsx.NewClient(c.url, connOpts...)
		if err == nil {
			slog.InfoContext(ctx, "connected to broker", slog.String("url", c.url))
			return NATS(nc)
		}
		slog.WarnContext(ctx, "broker unreachable, degrading to spool transport",
			slog.String("url", c.url),
			slog.String("spool_dir", c.spoolDir),
			slogx.Error(err),
		)
	}

	return Spooled(c.spoolDir,
		PollInterval(c.pollInterval),
		Retention(c.retention),
	)
}
