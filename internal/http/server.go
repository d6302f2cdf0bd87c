// Package http exposes the ledger, budget and statistics services as a
// JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"finbook/internal/core"
	"finbook/internal/services"
)

// CategoryLister reads the category taxonomy for the API surface.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type Server struct {
	http.Server
	ledger      *services.LedgerService
	budgets     *services.BudgetService
	stats       *services.StatsService
	categories  CategoryLister
	trendMonths int // default window for /api/stats/trend
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService, budgets *services.BudgetService, stats *services.StatsService, categories CategoryLister, trendMonths int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:      ledger,
		budgets:     budgets,
		stats:       stats,
		categories:  categories,
		trendMonths: trendMonths,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/transactions", s.withRequestLog(s.handleTransactions))
	mux.HandleFunc("/api/transactions/", s.withRequestLog(s.handleTransactionByID))
	mux.HandleFunc("/api/budgets", s.withRequestLog(s.handleListBudgets))
	mux.HandleFunc("/api/budgets/status", s.withRequestLog(s.handleBudgetStatus))
	mux.HandleFunc("/api/budgets/limit", s.withRequestLog(s.handleSetLimit))
	mux.HandleFunc("/api/stats/daily", s.withRequestLog(s.handleDailyStats))
	mux.HandleFunc("/api/stats/monthly", s.withRequestLog(s.handleMonthlyStats))
	mux.HandleFunc("/api/stats/yearly", s.withRequestLog(s.handleYearlyStats))
	mux.HandleFunc("/api/stats/trend", s.withRequestLog(s.handleTrend))
	mux.HandleFunc("/api/categories", s.withRequestLog(s.handleListCategories))

	return s
}

// withRequestLog adds a request ID and request logging to responses
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
