// Package api exposes the HTTP handlers for the fitsync service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"example.com/fitsync/internal/domain"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	insights *domain.InsightService
	parser   *domain.ParseService
	syncer   *domain.SyncService
}

// NewHandler builds a Handler.
func NewHandler(insights *domain.InsightService, parser *domain.ParseService, syncer *domain.SyncService) *Handler {
	return &Handler{insights: insights, parser: parser, syncer: syncer}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/v1/generate-insight", withCORS(http.HandlerFunc(h.generateInsight)))
	mux.Handle("/v1/parse-workout", withCORS(http.HandlerFunc(h.parseWorkout)))
	mux.Handle("/v1/sync-data", withCORS(http.HandlerFunc(h.syncData)))
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withCORS applies the permissive headers mobile clients expect and answers
// preflight requests before any handler logic runs.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) generateInsight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req GenerateInsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	insight, err := h.insights.Generate(r.Context(), req.UserID, req.Type, req.Context)
	if err != nil {
		log.Printf("generate-insight failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, GenerateInsightResponse{
		Success: true,
		Insight: insight,
		Type:    req.Type,
	})
}

func (h *Handler) parseWorkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req ParseWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	parsed, raw, err := h.parser.Parse(r.Context(), req.Input)
	if err != nil {
		log.Printf("parse-workout failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ParseWorkoutResponse{
		Success:       true,
		Parsed:        parsed,
		RawAIResponse: raw,
	})
}

func (h *Handler) syncData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome := h.syncer.Apply(r.Context(), req.UserID, req.Changes)

	resp := SyncResponse{
		Success:     true,
		Results:     outcome.Results,
		SyncedCount: len(outcome.Results),
		ErrorCount:  len(outcome.Errors),
	}
	if len(outcome.Errors) > 0 {
		resp.Errors = outcome.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

// GenerateInsightRequest is the payload for POST /v1/generate-insight.
type GenerateInsightRequest struct {
	UserID  string             `json:"userId"`
	Type    domain.InsightType `json:"type"`
	Context *domain.PRContext  `json:"context,omitempty"`
}

// Validate ensures request correctness.
func (r GenerateInsightRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("missing userId")
	}
	return nil
}

// GenerateInsightResponse describes the generate-insight success body.
type GenerateInsightResponse struct {
	Success bool               `json:"success"`
	Insight string             `json:"insight"`
	Type    domain.InsightType `json:"type"`
}

// ParseWorkoutRequest is the payload for POST /v1/parse-workout.
type ParseWorkoutRequest struct {
	Input  string `json:"input"`
	UserID string `json:"userId"`
}

// Validate ensures request correctness.
func (r ParseWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.Input) == "" || strings.TrimSpace(r.UserID) == "" {
		return errors.New("missing input or userId")
	}
	return nil
}

// ParseWorkoutResponse describes the parse-workout success body.
type ParseWorkoutResponse struct {
	Success       bool               `json:"success"`
	Parsed        []domain.ParsedSet `json:"parsed"`
	RawAIResponse string             `json:"rawAiResponse"`
}

// SyncRequest is the payload for POST /v1/sync-data.
type SyncRequest struct {
	UserID  string              `json:"userId"`
	Changes []domain.SyncChange `json:"changes"`
}

// Validate ensures request correctness. An empty changes array is valid; an
// absent one is not.
func (r SyncRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" || r.Changes == nil {
		return errors.New("missing userId or changes")
	}
	return nil
}

// SyncResponse describes the sync-data success body. Errors is omitted when
// every change applied.
type SyncResponse struct {
	Success     bool                    `json:"success"`
	Results     []domain.SyncItemResult `json:"results"`
	Errors      []domain.SyncItemError  `json:"errors,omitempty"`
	SyncedCount int                     `json:"syncedCount"`
	ErrorCount  int                     `json:"errorCount"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
