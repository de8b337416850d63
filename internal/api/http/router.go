// Package http exposes the interactive query service: natural language in,
// generated query and execution results out.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"procurement-query-pipeline/internal/app"
	"procurement-query-pipeline/internal/executor"
	"procurement-query-pipeline/internal/llm"
	"procurement-query-pipeline/internal/prompts"
	"procurement-query-pipeline/internal/query"
)

// Runner executes a validated query document.
type Runner interface {
	Execute(ctx context.Context, doc *query.Document) executor.Result
	Ping(ctx context.Context) error
}

// QueryRequest is the POST /v1/query body.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse is the POST /v1/query reply. Warnings carry validator
// rejections for queries that ran anyway.
type QueryResponse struct {
	Question       string   `json:"question"`
	GeneratedQuery string   `json:"generated_query"`
	Warnings       []string `json:"warnings,omitempty"`
	Success        bool     `json:"success"`
	ResultCount    int      `json:"result_count"`
	Sample         []any    `json:"sample,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Handler serves the query API.
type Handler struct {
	client    llm.Client
	validator *query.Validator
	runner    Runner
	logger    zerolog.Logger
}

// NewRouter constructs the HTTP router for the query service.
func NewRouter(application *app.Application, client llm.Client, validator *query.Validator, runner Runner) http.Handler {
	h := &Handler{
		client:    client,
		validator: validator,
		runner:    runner,
		logger:    application.Logger.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, req *http.Request) {
		if err := runner.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", h.handleQuery)
	})

	return r
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeJSON(w, http.StatusBadRequest, QueryResponse{Error: "request body must be {\"question\": \"...\"}"})
		return
	}

	raw, err := h.client.Complete(r.Context(), llm.Request{
		System:    prompts.FineTunedSystem,
		User:      req.Question,
		MaxTokens: 4096,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Query generation failed")
		writeJSON(w, http.StatusBadGateway, QueryResponse{
			Question: req.Question,
			Error:    "query generation failed",
		})
		return
	}

	doc, err := query.Parse(raw)
	if err != nil {
		h.logger.Warn().Err(err).Str("raw", raw).Msg("Model response was not a query")
		writeJSON(w, http.StatusUnprocessableEntity, QueryResponse{
			Question:       req.Question,
			GeneratedQuery: raw,
			Error:          "model did not return a parseable query",
		})
		return
	}

	res := h.validator.Validate(doc)
	resp := QueryResponse{Question: req.Question}
	for _, rej := range res.Rejections {
		resp.Warnings = append(resp.Warnings, rej.Reason)
	}

	queryJSON, err := json.Marshal(res.Normalized)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, QueryResponse{
			Question: req.Question,
			Error:    "could not serialize query",
		})
		return
	}
	resp.GeneratedQuery = string(queryJSON)

	execRes := h.runner.Execute(r.Context(), res.Normalized)
	resp.Success = execRes.Success
	resp.ResultCount = execRes.ResultCount
	for _, s := range execRes.Sample {
		resp.Sample = append(resp.Sample, s)
	}
	if !execRes.Success {
		resp.Error = execRes.Error
	}

	status := http.StatusOK
	if !execRes.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
