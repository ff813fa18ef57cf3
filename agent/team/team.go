// Package team analyzes the most recent stored team review and reports
// sentiment, themes, and the concrete feedback it contains.
package team

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fogfish/opts"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/store"
)

// Name is the producer name this analyzer reports under.
const Name = "team"

func init() {
	agent.Register(Name, func() agent.Analyzer { return New() })
}

type analyzer struct {
	store  *store.Store
	dbPath string
}

var (
	// Store sets a shared review store. The caller keeps ownership and
	// closes it.
	Store = opts.ForName[analyzer, *store.Store]("store")
	// DBPath sets where to open the review database when no shared store
	// is configured.
	DBPath = opts.ForName[analyzer, string]("dbPath")
)

// New constructs the analyzer. Without a shared store it opens the
// database per analysis at SQUIRE_DB_PATH, falling back to
// store.DefaultPath.
func New(options ...opts.Option[analyzer]) agent.Analyzer {
	a := &analyzer{dbPath: os.Getenv("SQUIRE_DB_PATH")}
	if a.dbPath == "" {
		a.dbPath = store.DefaultPath
	}
	if err := opts.Apply(a, options); err != nil {
		panic(err)
	}
	return a
}

func (a *analyzer) Name() string { return Name }

// Result is the done payload this producer publishes. An empty review
// table is a completed round with a message, not an error.
type Result struct {
	Agent    string       `json:"agent"`
	Status   agent.Status `json:"status"`
	Analyses []Analysis   `json:"analyses"`
	Count    int          `json:"count,omitempty"`
	Summary  string       `json:"summary,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Analyze loads the newest team review and distills it into an Analysis.
// The trigger payload carries no overrides for this producer.
func (a *analyzer) Analyze(ctx context.Context, _ events.Envelope) (any, error) {
	st, done, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	review, err := st.LatestTeamReview(ctx)
	if errors.Is(err, store.ErrNoReview) {
		return Result{
			Agent:    Name,
			Status:   agent.StatusCompleted,
			Analyses: []Analysis{},
			Message:  "No team reviews found in database",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest team review: %w", err)
	}

	member := review.TeamMember
	if member == "" {
		member = "Unknown"
	}

	return Result{
		Agent:    Name,
		Status:   agent.StatusCompleted,
		Analyses: []Analysis{analyzeReview(review)},
		Count:    1,
		Summary:  fmt.Sprintf("Analyzed team review #%d from %s", review.ID, member),
	}, nil
}

func (a *analyzer) openStore(ctx context.Context) (*store.Store, func(), error) {
	if a.store != nil {
		return a.store, func() {}, nil
	}

	st, err := store.Open(a.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open review store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("prepare review store: %w", err)
	}
	return st, func() { _ = st.Close() }, nil
}
