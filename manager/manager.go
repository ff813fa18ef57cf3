// Package manager consumes combined round envelopes, synthesizes the
// final analysis report, stores it for API access, and publishes it on
// the report topic.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/dedupe"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
	"github.com/rayhaanfarooq/squire/store"
)

// Name identifies the manager in its published payloads.
const Name = "manager"

// Manager turns join envelopes into stored, published reports. All
// methods are safe for concurrent use.
type Manager interface {
	// Listen subscribes to the join topic so every completed round is
	// synthesized once. The returned stop function removes the
	// subscription.
	Listen(ctx context.Context) (stop func(), err error)
	// RunOnce synthesizes one join envelope, stores the full report, and
	// publishes it on the report topic. Storage failures are published as
	// error payloads and not returned; the error return covers transport.
	RunOnce(ctx context.Context, join events.Envelope) error
}

type manager struct {
	transport   broker.Broker
	store       *store.Store
	dbPath      string
	joinTopic   string
	reportTopic string
}

var (
	// Transport sets the broker the manager subscribes and publishes
	// through.
	Transport = opts.ForName[manager, broker.Broker]("transport")
	// Store sets a shared report store. The caller keeps ownership and
	// closes it.
	Store = opts.ForName[manager, *store.Store]("store")
	// DBPath sets where to open the report database when no shared store
	// is configured.
	DBPath = opts.ForName[manager, string]("dbPath")
	// JoinTopic is the topic combined round envelopes arrive on.
	JoinTopic = opts.ForName[manager, string]("joinTopic")
	// ReportTopic is the topic finished reports are published on.
	ReportTopic = opts.ForName[manager, string]("reportTopic")
)

// New wires the manager to its topics. It panics when the transport or
// either topic is missing. Without a shared store it opens the database
// per report at SQUIRE_DB_PATH, falling back to store.DefaultPath.
func New(options ...opts.Option[manager]) Manager {
	m := &manager{dbPath: os.Getenv("SQUIRE_DB_PATH")}
	if m.dbPath == "" {
		m.dbPath = store.DefaultPath
	}
	if err := opts.Apply(m, options); err != nil {
		panic(err)
	}
	if m.transport == nil {
		panic("manager: a transport is required")
	}
	if m.joinTopic == "" || m.reportTopic == "" {
		panic("manager: join and report topics are required")
	}
	return m
}

// Published is the payload emitted on the report topic.
type Published struct {
	Agent     string          `json:"agent"`
	Status    agent.Status    `json:"status"`
	Report    Report          `json:"report"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// stored is the document persisted for API access. It keeps the raw
// producer sections alongside the synthesized report.
type stored struct {
	Agent           string          `json:"agent"`
	Status          agent.Status    `json:"status"`
	Report          Report          `json:"report"`
	PRAnalysis      json.RawMessage `json:"pr_analysis"`
	MeetingAnalysis json.RawMessage `json:"meeting_analysis"`
}

func (m *manager) Listen(ctx context.Context) (func(), error) {
	handler := events.Deduped(dedupe.New(0), events.HandlerFunc(m.RunOnce))
	sub, err := m.transport.Topic(ctx, m.joinTopic).Subscribe(ctx, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe manager to %s: %w", m.joinTopic, err)
	}

	slog.InfoContext(ctx, "manager listening", slog.String("topic", m.joinTopic))
	return sub.Unsubscribe, nil
}

func (m *manager) RunOnce(ctx context.Context, join events.Envelope) error {
	prAnalysis := join.Payload.Get("pr_analysis")
	meetingAnalysis := join.Payload.Get("meeting_analysis")
	if prAnalysis.Get("status").String() != "completed" {
		slog.WarnContext(ctx, "pr analysis missing or incomplete", slog.String("envelope_id", join.ID))
	}
	if meetingAnalysis.Get("status").String() != "completed" {
		slog.WarnContext(ctx, "meeting analysis missing or incomplete", slog.String("envelope_id", join.ID))
	}

	report := Synthesize(prAnalysis, meetingAnalysis)

	if err := m.storeReport(ctx, report, prAnalysis, meetingAnalysis); err != nil {
		slog.ErrorContext(ctx, "report storage failed", slogx.Error(err))
		failure := agent.ErrorResult{Agent: Name, Status: agent.StatusError, Error: err.Error()}
		if pubErr := broker.Publish(ctx, m.transport, m.reportTopic, failure); pubErr != nil {
			return fmt.Errorf("publish storage failure: %w", pubErr)
		}
		return nil
	}

	out := Published{
		Agent:     Name,
		Status:    agent.StatusCompleted,
		Report:    report,
		Timestamp: strfmt.DateTime(time.Now().UTC()),
	}
	if err := broker.Publish(ctx, m.transport, m.reportTopic, out); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	slog.InfoContext(ctx, "final report published and stored", slog.String("topic", m.reportTopic))
	return nil
}

func (m *manager) storeReport(ctx context.Context, report Report, prAnalysis, meetingAnalysis gjson.Result) error {
	body, err := json.Marshal(stored{
		Agent:           Name,
		Status:          agent.StatusCompleted,
		Report:          report,
		PRAnalysis:      rawSection(prAnalysis),
		MeetingAnalysis: rawSection(meetingAnalysis),
	})
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	st, done, err := m.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := st.SaveReport(ctx, string(body)); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (m *manager) openStore(ctx context.Context) (*store.Store, func(), error) {
	if m.store != nil {
		return m.store, func() {}, nil
	}

	st, err := store.Open(m.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open report store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("prepare report store: %w", err)
	}
	return st, func() { _ = st.Close() }, nil
}

func rawSection(v gjson.Result) json.RawMessage {
	if !v.Exists() {
		return json.RawMessage(`null`)
	}
	return json.RawMessage(v.Raw)
}
