// Package meeting analyzes exported Google Docs meeting minutes and
// reports action items, decisions, and a narrative summary per document.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fogfish/opts"
	"github.com/tidwall/gjson"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
)

// Name is the producer name this analyzer reports under.
const Name = "meeting"

const defaultBaseURL = "https://docs.google.com"

func init() {
	agent.Register(Name, func() agent.Analyzer { return New() })
}

type analyzer struct {
	docs    []string
	baseURL string
	client  *http.Client
}

var (
	// Docs sets the document URLs analyzed when the trigger carries none.
	Docs = opts.ForName[analyzer, []string]("docs")
	// BaseURL overrides the document export endpoint.
	BaseURL = opts.ForName[analyzer, string]("baseURL")
	// Client overrides the HTTP client.
	Client = opts.ForName[analyzer, *http.Client]("client")
)

// New constructs the analyzer. Document URLs default to the
// comma-separated SQUIRE_MEETING_DOCS environment variable.
func New(options ...opts.Option[analyzer]) agent.Analyzer {
	a := &analyzer{
		docs:    splitDocs(os.Getenv("SQUIRE_MEETING_DOCS")),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	if err := opts.Apply(a, options); err != nil {
		panic(err)
	}
	return a
}

func (a *analyzer) Name() string { return Name }

// Result is the done payload this producer publishes. Analyses holds an
// Analysis per readable document and a failure entry per unreadable one,
// so DocumentsAnalyzed counts both.
type Result struct {
	Agent             string       `json:"agent"`
	Status            agent.Status `json:"status"`
	DocumentsAnalyzed int          `json:"documents_analyzed"`
	Analyses          []any        `json:"analyses"`
	Summary           string       `json:"summary,omitempty"`
}

type failure struct {
	DocURL string       `json:"doc_url"`
	Status agent.Status `json:"status"`
	Error  string       `json:"error"`
}

// Analyze reads every configured document and distills each into an
// Analysis. A meeting_docs field on the trigger payload, either an array
// of URLs or one comma-separated string, replaces the configured list
// for that round.
func (a *analyzer) Analyze(ctx context.Context, trigger events.Envelope) (any, error) {
	docs := a.docs
	if v := trigger.Payload.Get("meeting_docs"); v.Exists() {
		docs = docsFromPayload(v)
	}
	if len(docs) == 0 {
		return nil, errors.New("no meeting document URLs provided")
	}

	analyses := make([]any, 0, len(docs))
	for _, docURL := range docs {
		content, err := a.export(ctx, docURL)
		if err != nil {
			slog.WarnContext(ctx, "meeting document unreadable", slog.String("doc_url", docURL), slogx.Error(err))
			analyses = append(analyses, failure{DocURL: docURL, Status: agent.StatusError, Error: err.Error()})
			continue
		}
		analyses = append(analyses, analyzeMinutes(docURL, content))
	}

	return Result{
		Agent:             Name,
		Status:            agent.StatusCompleted,
		DocumentsAnalyzed: len(analyses),
		Analyses:          analyses,
		Summary:           fmt.Sprintf("Analyzed %d meeting document(s)", len(analyses)),
	}, nil
}

// export fetches a document through the public plain-text export
// endpoint, which works for any link-shared document without
// credentials.
func (a *analyzer) export(ctx context.Context, docURL string) (string, error) {
	match := docIDPattern.FindStringSubmatch(docURL)
	if match == nil {
		return "", fmt.Errorf("no document id in url %s", docURL)
	}

	target := fmt.Sprintf("%s/document/d/%s/export?format=txt", a.baseURL, match[1])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("HTTP %d: document may not be publicly accessible", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func docsFromPayload(v gjson.Result) []string {
	if !v.IsArray() {
		return splitDocs(v.String())
	}
	var docs []string
	for _, item := range v.Array() {
		if doc := strings.TrimSpace(item.String()); doc != "" {
			docs = append(docs, doc)
		}
	}
	return docs
}

func splitDocs(csv string) []string {
	var docs []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			docs = append(docs, part)
		}
	}
	return docs
}
