// Package api exposes the recommender over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/gateway"
	"github.com/nidhogg/boutique-stylist/internal/ingest"
	"github.com/nidhogg/boutique-stylist/internal/journal"
	"github.com/nidhogg/boutique-stylist/internal/rag"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Recommender answers shopping queries.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*rag.Result, error)
}

// RunLister lists recent ingestion runs.
type RunLister interface {
	ListIngestRuns(ctx context.Context, limit int) ([]ingest.Report, error)
}

// TopLister lists the most recommended products.
type TopLister interface {
	Top(ctx context.Context, limit int) ([]journal.ProductStat, error)
}

// StatusProvider reports chat adapter status.
type StatusProvider interface {
	StatusAll() []gateway.AdapterStatus
}

// HealthCheck probes one backend.
type HealthCheck func(ctx context.Context) error

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	recommender Recommender
	runs        RunLister
	top         TopLister
	gw          StatusProvider
	checks      map[string]HealthCheck
	timeout     time.Duration
	logger      *zap.Logger
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// NewHandler creates a new API handler. timeout is the server-side deadline
// applied to every request.
func NewHandler(rec Recommender, timeout time.Duration, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Handler{
		recommender: rec,
		checks:      make(map[string]HealthCheck),
		timeout:     timeout,
		logger:      logger,
	}
}

// SetRunLister enables GET /api/ingest/runs.
func (h *Handler) SetRunLister(r RunLister) { h.runs = r }

// SetTopLister enables GET /api/recommendations/top.
func (h *Handler) SetTopLister(t TopLister) { h.top = t }

// SetGateway enables GET /api/gateway/status.
func (h *Handler) SetGateway(gw StatusProvider) { h.gw = gw }

// AddHealthCheck registers a backend probe reported by GET /api/health.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(h.deadline)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/search", h.search)
		r.Get("/ingest/runs", h.listRuns)
		r.Get("/recommendations/top", h.topProducts)
		r.Get("/gateway/status", h.gatewayStatus)
	})

	return r
}

// deadline bounds every request by the configured timeout.
func (h *Handler) deadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "components": components})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	res, err := h.recommender.Recommend(r.Context(), req.Query)
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run ledger not configured"})
		return
	}
	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}
	runs, err := h.runs.ListIngestRuns(r.Context(), limit)
	if err != nil {
		h.writeError(w, "list ingest runs", err)
		return
	}
	if runs == nil {
		runs = []ingest.Report{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	if h.top == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "recommendation journal not configured"})
		return
	}
	limit, ok := parseLimit(w, r, 10)
	if !ok {
		return
	}
	stats, err := h.top.Top(r.Context(), limit)
	if err != nil {
		h.writeError(w, "top products", err)
		return
	}
	if stats == nil {
		stats = []journal.ProductStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	if h.gw == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gateway not initialized"})
		return
	}
	writeJSON(w, http.StatusOK, h.gw.StatusAll())
}

func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
		return 0, false
	}
	return n, true
}

// StatusFor maps an error to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperr.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrProvider), errors.Is(err, apperr.ErrIndex):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	h.logger.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
