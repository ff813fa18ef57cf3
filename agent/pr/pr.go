// Package pr analyzes the most recently merged pull request of a GitHub
// repository and reports change metrics, a text summary, and a review
// assessment.
package pr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fogfish/opts"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/events"
)

// Name is the producer name this analyzer reports under.
const Name = "pr"

const defaultBaseURL = "https://api.github.com"

func init() {
	agent.Register(Name, func() agent.Analyzer { return New() })
}

type analyzer struct {
	owner   string
	repo    string
	token   string
	baseURL string
	client  *http.Client
}

var (
	// Owner sets the repository owner to analyze.
	Owner = opts.ForName[analyzer, string]("owner")
	// Repo sets the repository name to analyze.
	Repo = opts.ForName[analyzer, string]("repo")
	// Token authenticates against the GitHub API. Unauthenticated requests
	// work for public repositories within rate limits.
	Token = opts.ForName[analyzer, string]("token")
	// BaseURL overrides the GitHub API endpoint.
	BaseURL = opts.ForName[analyzer, string]("baseURL")
	// Client overrides the HTTP client.
	Client = opts.ForName[analyzer, *http.Client]("client")
)

// New constructs the analyzer. Repository coordinates default to the
// SQUIRE_GITHUB_OWNER, SQUIRE_GITHUB_REPO, and SQUIRE_GITHUB_TOKEN
// environment variables.
func New(options ...opts.Option[analyzer]) agent.Analyzer {
	a := &analyzer{
		owner:   os.Getenv("SQUIRE_GITHUB_OWNER"),
		repo:    os.Getenv("SQUIRE_GITHUB_REPO"),
		token:   os.Getenv("SQUIRE_GITHUB_TOKEN"),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	if err := opts.Apply(a, options); err != nil {
		panic(err)
	}
	return a
}

func (a *analyzer) Name() string { return Name }

// Analyze fetches the most recently merged pull request and distills it
// into a Result. The trigger payload carries no overrides for this
// producer.
func (a *analyzer) Analyze(ctx context.Context, _ events.Envelope) (any, error) {
	if a.owner == "" || a.repo == "" {
		return nil, errors.New("github repository not configured")
	}
	repo := a.owner + "/" + a.repo

	merged, err := a.recentMerged(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch pull requests for %s: %w", repo, err)
	}
	if len(merged) == 0 {
		return Result{
			Agent:    Name,
			Status:   agent.StatusCompleted,
			Repo:     repo,
			Analyses: []Analysis{},
			Message:  fmt.Sprintf("no merged pull requests found for %s", repo),
		}, nil
	}

	head := merged[0]
	detail, files, err := a.details(ctx, head.Number)
	if err != nil {
		return nil, fmt.Errorf("fetch pull request #%d from %s: %w", head.Number, repo, err)
	}

	return Result{
		Agent:    Name,
		Status:   agent.StatusCompleted,
		Repo:     repo,
		Analyses: []Analysis{analyze(detail, files)},
		Count:    1,
		Summary:  fmt.Sprintf("Analyzed most recent merged PR #%d from %s", head.Number, repo),
	}, nil
}
