package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goscout/internal/intent"
	"github.com/hyperifyio/goscout/internal/websearch"
)

type searchRequest struct {
	Query string `json:"query"`
	Depth string `json:"depth"`
}

type intentRequest struct {
	Query   string           `json:"query"`
	History []intent.Message `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the subsystem to the chat layer: web search and intent
// classification, plus a health probe.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", a.handleSearch)
	mux.HandleFunc("POST /api/intent", a.handleIntent)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	resp, err := a.Search.Search(r.Context(), req.Query, req.Depth)
	switch {
	case errors.Is(err, websearch.ErrQueryTooLong):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, websearch.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	writeJSON(w, http.StatusOK, a.Intent.Classify(r.Context(), req.Query, req.History))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}
