package squire

import (
	"os"
	"slices"
	"strings"

	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/store"
)

// DefaultHTTPAddr is where serve listens when no address is configured.
const DefaultHTTPAddr = ":8000"

// DefaultAgents names the producers a round waits on when none are
// configured.
var DefaultAgents = []string{"pr", "meeting"}

// Config carries the process-level settings every squire role shares.
// FromEnv fills it from SQUIRE_* environment variables; the per-agent
// settings (SQUIRE_GITHUB_*, SQUIRE_MEETING_DOCS) are read by the
// analyzers themselves.
type Config struct {
	// BrokerURL points at a real broker backend. When it is empty, or the
	// backend is unreachable, transports degrade to the file spool.
	BrokerURL      string
	BrokerUsername string
	BrokerPassword string
	// SpoolDir hosts the degraded-mode file queue.
	SpoolDir string
	// Agents lists the producers a round waits on. Their order is the
	// section order of the join payload.
	Agents []string
	// Namespace roots every workflow topic.
	Namespace Namespace
	// DBPath locates the sqlite file holding reports and team reviews.
	DBPath string
	// HTTPAddr is the serve listen address.
	HTTPAddr string
}

// FromEnv builds a Config from SQUIRE_* environment variables, falling
// back to defaults for anything unset.
func FromEnv() Config {
	return Config{
		BrokerURL:      os.Getenv("SQUIRE_BROKER_URL"),
		BrokerUsername: os.Getenv("SQUIRE_BROKER_USERNAME"),
		BrokerPassword: os.Getenv("SQUIRE_BROKER_PASSWORD"),
		SpoolDir:       envOr("SQUIRE_SPOOL_DIR", broker.DefaultSpoolDir),
		Agents:         agentNames(os.Getenv("SQUIRE_AGENTS")),
		Namespace:      Namespace(envOr("SQUIRE_NAMESPACE", string(DefaultNamespace))),
		DBPath:         envOr("SQUIRE_DB_PATH", store.DefaultPath),
		HTTPAddr:       envOr("SQUIRE_HTTP_ADDR", DefaultHTTPAddr),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func agentNames(csv string) []string {
	var names []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	if len(names) == 0 {
		return slices.Clone(DefaultAgents)
	}
	return names
}
