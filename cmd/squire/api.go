package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
	"github.com/rayhaanfarooq/squire/store"
)

// startRequest is the optional JSON body of POST /api/analysis/start.
type startRequest struct {
	MeetingDocs []string `json:"meeting_docs"`
}

func apiHandler(wf squire.Workflow) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analysis/start", func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}

		var overrides map[string]any
		if len(req.MeetingDocs) > 0 {
			overrides = map[string]any{"meeting_docs": req.MeetingDocs}
		}

		if err := wf.StartRound(r.Context(), overrides); err != nil {
			slog.ErrorContext(r.Context(), "failed to start analysis round", slogx.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start analysis round"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	})

	mux.HandleFunc("GET /api/analysis/report", func(w http.ResponseWriter, r *http.Request) {
		saved, err := wf.Store().LatestReport(r.Context())
		if errors.Is(err, store.ErrNoReport) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report available"})
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to load latest report", slogx.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load report"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, saved.Body)
	})

	mux.HandleFunc("GET /api/analysis/status", func(w http.ResponseWriter, r *http.Request) {
		outstanding := wf.Outstanding()
		if outstanding == nil {
			outstanding = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"outstanding": outstanding,
			"rounds":      wf.Rounds(),
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "squire",
			"version": version,
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slogx.Error(err))
	}
}
