package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rayhaanfarooq/squire/broker"
	"github.com/rayhaanfarooq/squire/store"
)

type stubWorkflow struct {
	mu          sync.Mutex
	store       *store.Store
	startErr    error
	rounds      uint64
	outstanding []string
	triggers    []map[string]any
}

func (s *stubWorkflow) Start(context.Context) (func(), error) { return func() {}, nil }

func (s *stubWorkflow) StartRound(_ context.Context, overrides map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.triggers = append(s.triggers, overrides)
	return nil
}

func (s *stubWorkflow) Outstanding() []string    { return s.outstanding }
func (s *stubWorkflow) Rounds() uint64           { return s.rounds }
func (s *stubWorkflow) Transport() broker.Broker { return nil }
func (s *stubWorkflow) Store() *store.Store      { return s.store }

func (s *stubWorkflow) trigger(i int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers[i]
}

func setupAPIStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "squire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func serveRequest(wf *stubWorkflow, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	apiHandler(wf).ServeHTTP(rec, req)
	return rec
}

func TestStartEndpointAcceptsRound(t *testing.T) {
	wf := &stubWorkflow{}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodPost, "/api/analysis/start", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"started"}`, rec.Body.String())
	require.Len(t, wf.triggers, 1)
	assert.Nil(t, wf.trigger(0))
}

func TestStartEndpointForwardsMeetingDocs(t *testing.T) {
	wf := &stubWorkflow{}
	body := strings.NewReader(`{"meeting_docs":["https://docs.google.com/document/d/abc123/edit"]}`)

	rec := serveRequest(wf, httptest.NewRequest(http.MethodPost, "/api/analysis/start", body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, wf.triggers, 1)
	docs, ok := wf.trigger(0)["meeting_docs"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"https://docs.google.com/document/d/abc123/edit"}, docs)
}

func TestStartEndpointRejectsMalformedBody(t *testing.T) {
	wf := &stubWorkflow{}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodPost, "/api/analysis/start", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, wf.triggers)
}

func TestStartEndpointSurfacesPublishFailure(t *testing.T) {
	wf := &stubWorkflow{startErr: errors.New("transport down")}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodPost, "/api/analysis/start", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to start analysis round"}`, rec.Body.String())
}

func TestReportEndpointServesStoredDocument(t *testing.T) {
	st := setupAPIStore(t)
	doc := `{"agent":"manager","status":"completed","report":{"executive_summary":"all good"}}`
	_, err := st.SaveReport(context.Background(), doc)
	require.NoError(t, err)
	wf := &stubWorkflow{store: st}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodGet, "/api/analysis/report", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, doc, rec.Body.String())
}

func TestReportEndpointWithoutReport(t *testing.T) {
	wf := &stubWorkflow{store: setupAPIStore(t)}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodGet, "/api/analysis/report", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no report available"}`, rec.Body.String())
}

func TestStatusEndpointReportsBarrierState(t *testing.T) {
	wf := &stubWorkflow{outstanding: []string{"meeting"}, rounds: 3}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodGet, "/api/analysis/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := gjson.Parse(rec.Body.String())
	assert.EqualValues(t, 3, body.Get("rounds").Int())
	require.Len(t, body.Get("outstanding").Array(), 1)
	assert.Equal(t, "meeting", body.Get("outstanding").Array()[0].String())
}

func TestStatusEndpointNeverReturnsNullOutstanding(t *testing.T) {
	wf := &stubWorkflow{}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodGet, "/api/analysis/status", nil))

	body := gjson.Parse(rec.Body.String())
	require.True(t, body.Get("outstanding").IsArray())
	assert.Empty(t, body.Get("outstanding").Array())
}

func TestHealthEndpoint(t *testing.T) {
	wf := &stubWorkflow{}

	rec := serveRequest(wf, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := gjson.Parse(rec.Body.String())
	assert.Equal(t, "healthy", body.Get("status").String())
	assert.Equal(t, "squire", body.Get("service").String())
	assert.Equal(t, version, body.Get("version").String())
}
