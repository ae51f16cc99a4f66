package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"score-inverter/internal/db"
	"score-inverter/internal/inverter"
	"score-inverter/internal/logger"
	"score-inverter/internal/score"
	"score-inverter/internal/service"
)

const solveTimeout = 60 * time.Second

// GlobalStats represents overall statistics
type GlobalStats struct {
	Service         service.Stats `json:"service"`
	CachedResults   int           `json:"cached_results"`
	CachedRecords   int           `json:"cached_records"`
	DistinctCharts  int           `json:"distinct_charts"`
	TotalQueries    int           `json:"total_queries"`
	CacheHits       int           `json:"cache_hits"`
	FailedQueries   int           `json:"failed_queries"`
	DatabaseHealthy bool          `json:"database_healthy"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string          `json:"status"`
	Database  db.HealthStatus `json:"database"`
	CacheOpen bool            `json:"cache_circuit_open"`
}

// SolveResponse is returned by /api/solve
type SolveResponse struct {
	*service.Answer
	Truncated bool `json:"truncated,omitempty"`
}

// RandomResponse is returned by /api/solve/random
type RandomResponse struct {
	Amount    int64             `json:"amount"`
	Score     int64             `json:"score"`
	Count     int               `json:"count"`
	Cached    bool              `json:"cached"`
	ElapsedUs int64             `json:"elapsed_us"`
	Solution  inverter.Solution `json:"solution"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler holds HTTP handler dependencies
type Handler struct {
	svc    *service.Service
	db     db.Store
	logger *logger.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHandler creates a new API handler
func NewHandler(svc *service.Service, store db.Store, log *logger.Logger, rng *rand.Rand) *Handler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Handler{
		svc:    svc,
		db:     store,
		logger: log,
		rng:    rng,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.serveIndex)
	mux.HandleFunc("/api/solve", h.handleSolve)
	mux.HandleFunc("/api/solve/random", h.handleSolveRandom)
	mux.HandleFunc("/api/score", h.handleScore)
	mux.HandleFunc("/api/queries", h.handleQueries)
	mux.HandleFunc("/api/stats", h.handleStats)
	mux.HandleFunc("/api/health", h.handleHealth)
	mux.HandleFunc("/api/logs", h.handleLogs)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"routes": {
			"/api/solve?amount=&score=[&limit=]",
			"/api/solve/random?amount=&score=",
			"/api/score?amount=&combo=&perfect=&good=",
			"/api/queries[?limit=]",
			"/api/stats",
			"/api/health",
			"/api/logs",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// queryInt reads a required integer query parameter
func queryInt(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: not an integer", name)
	}
	return n, nil
}

// solveStatus maps a solve error to an HTTP status
func solveStatus(err error) int {
	switch {
	case errors.Is(err, inverter.ErrInvalidAmount), errors.Is(err, inverter.ErrAmountTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, inverter.ErrBudgetExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) solve(w http.ResponseWriter, r *http.Request) (*service.Answer, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	amount, err := queryInt(r, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	target, err := queryInt(r, "score")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), solveTimeout)
	defer cancel()

	ans, err := h.svc.Solve(ctx, amount, target)
	if err != nil {
		status := solveStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Solve A=%d S=%d failed: %v", amount, target, err)
		}
		writeError(w, status, err)
		return nil, false
	}
	return ans, true
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	ans, ok := h.solve(w, r)
	if !ok {
		return
	}

	resp := SolveResponse{Answer: ans}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parameter %q: not a non-negative integer", "limit"))
			return
		}
		if limit < len(ans.Solutions) {
			trimmed := *ans
			trimmed.Solutions = ans.Solutions[:limit]
			resp.Answer = &trimmed
			resp.Truncated = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSolveRandom(w http.ResponseWriter, r *http.Request) {
	ans, ok := h.solve(w, r)
	if !ok {
		return
	}

	h.rngMu.Lock()
	sol, found := service.Pick(h.rng, ans.Solutions)
	h.rngMu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound,
			fmt.Errorf("no record scores %d on %d notes", ans.Score, ans.Amount))
		return
	}

	writeJSON(w, http.StatusOK, RandomResponse{
		Amount:    ans.Amount,
		Score:     ans.Score,
		Count:     ans.Count,
		Cached:    ans.Cached,
		ElapsedUs: ans.ElapsedUs,
		Solution:  sol,
	})
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var vals [4]int64
	for i, name := range []string{"amount", "combo", "perfect", "good"} {
		n, err := queryInt(r, name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		vals[i] = n
	}

	rep, err := service.ScoreOf(vals[1], vals[2], vals[3], vals[0])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, score.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleQueries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parameter %q: not a positive integer", "limit"))
			return
		}
		limit = min(n, 500)
	}

	queries, err := h.db.RecentQueries(ctx, limit)
	if err != nil {
		h.logger.Error("Failed to get queries: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, queries)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	dbStats, err := h.db.GetStats(ctx)

	stats := GlobalStats{
		Service:         h.svc.Stats(),
		DatabaseHealthy: true,
	}

	if err != nil {
		h.logger.Warn("Failed to get stats: %v", err)
		stats.DatabaseHealthy = false
	} else if dbStats != nil {
		stats.CachedResults = dbStats.CachedResults
		stats.CachedRecords = dbStats.CachedRecords
		stats.DistinctCharts = dbStats.DistinctCharts
		stats.TotalQueries = dbStats.TotalQueries
		stats.CacheHits = dbStats.CacheHits
		stats.FailedQueries = dbStats.FailedQueries
		stats.DatabaseHealthy = dbStats.Healthy
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbHealth := h.db.Health(ctx)

	status, code := "healthy", http.StatusOK
	if !dbHealth.Connected {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Database:  dbHealth,
		CacheOpen: h.svc.Stats().CacheOpen,
	})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.logger.GetEntries())
}
