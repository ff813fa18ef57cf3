package agent

import (
	"context"

	"github.com/rayhaanfarooq/squire/events"
)

// Status classifies the outcome a producer reports for one round.
type Status string

const (
	// StatusCompleted marks a payload carrying analysis results.
	StatusCompleted Status = "completed"
	// StatusError marks a payload carrying a failure description.
	StatusError Status = "error"
	// StatusPending marks a producer that has not reported this round. It
	// never appears in done payloads, only in status summaries.
	StatusPending Status = "pending"
)

// Analyzer is one unit of analysis work. Implementations fetch whatever
// their domain needs and distill it into a payload for the barrier.
type Analyzer interface {
	// Name is the producer name this analyzer reports under. It must be
	// stable: topics and barrier membership derive from it.
	Name() string
	// Analyze runs one round of analysis. The trigger envelope carries the
	// round's start payload, which may override the analyzer's configured
	// inputs. The returned value is encoded as the done payload and should
	// carry a status field of StatusCompleted.
	Analyze(ctx context.Context, trigger events.Envelope) (any, error)
}

// ErrorResult is the done payload the runner publishes when an analyzer
// returns an error.
type ErrorResult struct {
	Agent  string `json:"agent"`
	Status Status `json:"status"`
	Error  string `json:"error"`
}
