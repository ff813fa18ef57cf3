package squire

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/events"
)

type prDone struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type meetingDone struct {
	Status            string `json:"status"`
	DocumentsAnalyzed int    `json:"documents_analyzed"`
}

type cannedAnalyzer struct {
	name   string
	result any
}

func (c cannedAnalyzer) Name() string { return c.name }

func (c cannedAnalyzer) Analyze(context.Context, events.Envelope) (any, error) {
	return c.result, nil
}

// The real analyzer packages are not imported here, so their names are
// free for canned stand-ins that need no network or database.
func init() {
	agent.Register("pr", func() agent.Analyzer {
		return cannedAnalyzer{name: "pr", result: prDone{Status: "completed", Count: 1}}
	})
	agent.Register("meeting", func() agent.Analyzer {
		return cannedAnalyzer{name: "meeting", result: meetingDone{Status: "completed", DocumentsAnalyzed: 2}}
	})
}

type recorder struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (r *recorder) Handle(_ context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envelopes)
}

func (r *recorder) last() events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.envelopes[len(r.envelopes)-1]
}

func listen(t *testing.T, b broker.Broker, topic Topic) *recorder {
	t.Helper()
	rec := &recorder{}
	sub, err := b.Topic(context.Background(), topic.String()).Subscribe(context.Background(), rec)
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
	return rec
}

func newTestWorkflow(t *testing.T) (broker.Broker, Workflow) {
	t.Helper()
	b := broker.Local()
	t.Cleanup(func() { _ = b.Disconnect(context.Background()) })

	wf := New(Config{
		Agents: []string{"pr", "meeting"},
		DBPath: filepath.Join(t.TempDir(), "squire.db"),
	}, Transport(b))
	return b, wf
}

func TestWorkflowRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	b, wf := newTestWorkflow(t)

	joins := listen(t, b, DefaultNamespace.Join())
	reports := listen(t, b, DefaultNamespace.Report())

	stop, err := wf.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(stop)

	require.NoError(t, wf.StartRound(ctx, nil))

	require.Eventually(t, func() bool { return reports.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return joins.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t,
		`{"event":"join","pr_analysis":{"status":"completed","count":1},"meeting_analysis":{"status":"completed","documents_analyzed":2},"status":"ready_for_manager"}`,
		joins.last().Payload.Raw,
		"one trigger produces exactly one join envelope with producers in configured order")

	published := reports.last().Payload
	assert.Equal(t, "manager", published.Get("agent").String())
	assert.Equal(t, "completed", published.Get("status").String())

	saved, err := wf.Store().LatestReport(ctx)
	require.NoError(t, err)
	body := gjson.Parse(saved.Body)
	assert.Equal(t, "manager", body.Get("agent").String())
	assert.Contains(t, body.Get("report.executive_summary").String(), "EXECUTIVE SUMMARY")
	assert.Equal(t, `{"status":"completed","count":1}`, body.Get("pr_analysis").Raw)

	assert.Equal(t, []string{"pr", "meeting"}, wf.Outstanding(),
		"round state clears once the join fires, so the next round waits on everyone")
	assert.EqualValues(t, 1, wf.Rounds())

	// A second trigger opens a fresh round on the same workflow.
	require.NoError(t, wf.StartRound(ctx, nil))
	require.Eventually(t, func() bool { return reports.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return joins.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 2, wf.Rounds())

	all, err := wf.Store().ListReports(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStartRoundMergesOverrides(t *testing.T) {
	ctx := context.Background()
	b, wf := newTestWorkflow(t)

	triggers := listen(t, b, DefaultNamespace.Start())

	stop, err := wf.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(stop)

	docs := []string{"https://docs.google.com/document/d/abc123/edit"}
	require.NoError(t, wf.StartRound(ctx, map[string]any{"meeting_docs": docs}))

	require.Eventually(t, func() bool { return triggers.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	payload := triggers.last().Payload
	assert.Equal(t, "start", payload.Get("event").String())
	overrides := payload.Get("meeting_docs").Array()
	require.Len(t, overrides, 1)
	assert.Equal(t, docs[0], overrides[0].String())
}

func TestStartRejectsUnknownAgent(t *testing.T) {
	b := broker.Local()
	t.Cleanup(func() { _ = b.Disconnect(context.Background()) })

	wf := New(Config{
		Agents: []string{"ghost"},
		DBPath: filepath.Join(t.TempDir(), "squire.db"),
	}, Transport(b))

	_, err := wf.Start(context.Background())
	require.ErrorContains(t, err, `unknown agent "ghost"`)
}

func TestStartIsOneShot(t *testing.T) {
	ctx := context.Background()
	_, wf := newTestWorkflow(t)

	stop, err := wf.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(stop)

	_, err = wf.Start(ctx)
	require.ErrorContains(t, err, "already started")
}

func TestStartRoundRequiresStart(t *testing.T) {
	wf := New(Config{DBPath: filepath.Join(t.TempDir(), "squire.db")})

	err := wf.StartRound(context.Background(), nil)
	require.ErrorContains(t, err, "not started")
}

func TestNewAppliesConfigDefaults(t *testing.T) {
	w := New(Config{}).(*workflow)

	assert.Equal(t, DefaultAgents, w.cfg.Agents)
	assert.Equal(t, DefaultNamespace, w.cfg.Namespace)
	assert.Equal(t, broker.DefaultSpoolDir, w.cfg.SpoolDir)
	assert.NotEmpty(t, w.cfg.DBPath)
}
