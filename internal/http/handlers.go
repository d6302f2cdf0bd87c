package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"finbook/internal/charts"
	"finbook/internal/core"
	"finbook/internal/services"
	"finbook/internal/storage"
)

type transactionRequest struct {
	UserID     string `json:"user_id"`
	Amount     string `json:"amount"`
	Kind       string `json:"kind"`
	CategoryID string `json:"category_id"`
	Date       string `json:"date"`
	Note       string `json:"note"`
}

type transactionJSON struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Kind        string `json:"kind"`
	CategoryID  string `json:"category_id"`
	Date        string `json:"date"`
	Note        string `json:"note,omitempty"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Kind:        string(t.Kind),
		CategoryID:  t.CategoryID,
		Date:        t.Date,
		Note:        t.Note,
	}
}

type budgetJSON struct {
	ID              string  `json:"id"`
	Month           string  `json:"month"`
	LimitCents      int64   `json:"limit_cents"`
	SpentCents      int64   `json:"spent_cents"`
	RemainingCents  int64   `json:"remaining_cents"`
	SpentPercentage float64 `json:"spent_percentage"`
	Overspent       bool    `json:"overspent"`
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:              b.ID,
		Month:           b.Month,
		LimitCents:      b.Limit.Cents,
		SpentCents:      b.Spent.Cents,
		RemainingCents:  services.RemainingBudget(b.Limit, b.Spent).Cents,
		SpentPercentage: services.SpentPercentage(b.Limit, b.Spent),
		Overspent:       b.Spent.Cents > b.Limit.Cents,
	}
}

type totalsJSON struct {
	IncomeCents  int64 `json:"income_cents"`
	ExpenseCents int64 `json:"expense_cents"`
	BalanceCents int64 `json:"balance_cents"`
}

func toTotalsJSON(t core.Totals) totalsJSON {
	return totalsJSON{
		IncomeCents:  t.Income.Cents,
		ExpenseCents: t.Expense.Cents,
		BalanceCents: t.Balance.Cents,
	}
}

type categoryAmountJSON struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name,omitempty"`
	Icon        string `json:"icon,omitempty"`
	AmountCents int64  `json:"amount_cents"`
}

func toCategoryAmountsJSON(in []core.CategoryAmount) []categoryAmountJSON {
	out := make([]categoryAmountJSON, len(in))
	for i, c := range in {
		out[i] = categoryAmountJSON{
			CategoryID:  c.CategoryID,
			Name:        c.Name,
			Icon:        c.Icon,
			AmountCents: c.Amount.Cents,
		}
	}
	return out
}

type breakdownJSON struct {
	Expense []categoryAmountJSON `json:"expense"`
	Income  []categoryAmountJSON `json:"income"`
}

func toBreakdownJSON(b core.CategoryBreakdown) breakdownJSON {
	return breakdownJSON{
		Expense: toCategoryAmountsJSON(b.Expense),
		Income:  toCategoryAmountsJSON(b.Income),
	}
}

// respondServiceError translates domain errors into status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrInvalidScope),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyUser):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return "", false
	}
	return userID, true
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodGet:
		s.searchTransactions(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), core.Transaction{
		Amount:     core.Money{Cents: cents},
		Kind:       core.Kind(req.Kind),
		CategoryID: req.CategoryID,
		Date:       req.Date,
		Note:       req.Note,
		UserID:     req.UserID,
	})
	if err != nil && !errors.Is(err, services.ErrBudgetSync) {
		respondServiceError(w, r, err)
		return
	}

	resp := map[string]any{"transaction": toTransactionJSON(tx)}
	if err != nil {
		// The entry is stored; only the cached budget sum is stale.
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) searchTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := core.TransactionFilter{
		StartDate:  strings.TrimSpace(q.Get("start_date")),
		EndDate:    strings.TrimSpace(q.Get("end_date")),
		Kind:       core.Kind(strings.TrimSpace(q.Get("kind"))),
		CategoryID: strings.TrimSpace(q.Get("category_id")),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	if v := strings.TrimSpace(q.Get("min_amount")); v != "" {
		cents, err := core.ParseAmountToCents(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_amount")
			return
		}
		filter.MinAmount = &core.Money{Cents: cents}
	}
	if v := strings.TrimSpace(q.Get("max_amount")); v != "" {
		cents, err := core.ParseAmountToCents(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_amount")
			return
		}
		filter.MaxAmount = &core.Money{Cents: cents}
	}

	txs, err := s.ledger.FindTransactions(r.Context(), userID, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = toTransactionJSON(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.editTransaction(w, r, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, id)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) editTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	tx, err := s.ledger.EditTransaction(r.Context(), core.Transaction{
		ID:         id,
		Amount:     core.Money{Cents: cents},
		Kind:       core.Kind(req.Kind),
		CategoryID: req.CategoryID,
		Date:       req.Date,
		Note:       req.Note,
		UserID:     req.UserID,
	})
	if err != nil && !errors.Is(err, services.ErrBudgetSync) {
		respondServiceError(w, r, err)
		return
	}

	resp := map[string]any{"transaction": toTransactionJSON(tx)}
	if err != nil {
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	err := s.ledger.DeleteTransaction(r.Context(), userID, id)
	if err != nil && !errors.Is(err, services.ErrBudgetSync) {
		respondServiceError(w, r, err)
		return
	}

	resp := map[string]any{"deleted": id}
	if err != nil {
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	budgets, err := s.budgets.ListBudgets(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]budgetJSON, len(budgets))
	for i, b := range budgets {
		out[i] = toBudgetJSON(b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

// handleBudgetStatus resyncs the month and returns the fresh state, so
// the reported spent and overspent flag never lag the ledger.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	month := strings.TrimSpace(r.URL.Query().Get("month"))

	b, err := s.budgets.Resync(r.Context(), userID, month)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetJSON(b))
}

type setLimitRequest struct {
	UserID string `json:"user_id"`
	Month  string `json:"month"`
	Limit  string `json:"limit"`
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req setLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cents, err := core.ParseAmountToCents(req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	b, err := s.budgets.SetLimit(r.Context(), req.UserID, req.Month, core.Money{Cents: cents})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetJSON(b))
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := s.stats.DailyStats(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":        report.Date,
		"totals":      toTotalsJSON(report.Totals),
		"categories":  toBreakdownJSON(report.Categories),
		"expense_pie": charts.ExpensePie(report.Categories.Expense),
	})
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := s.stats.MonthlyStats(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"month":       report.Month,
		"totals":      toTotalsJSON(report.Totals),
		"days":        charts.DailySeries(report.Days),
		"categories":  toBreakdownJSON(report.Categories),
		"expense_pie": charts.ExpensePie(report.Categories.Expense),
	})
}

func (s *Server) handleYearlyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := s.stats.YearlyStats(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("year")))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":        report.Year,
		"totals":      toTotalsJSON(report.Totals),
		"months":      charts.MonthlySeries(report.Months),
		"categories":  toBreakdownJSON(report.Categories),
		"expense_pie": charts.ExpensePie(report.Categories.Expense),
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	months := s.trendMonths
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid months")
			return
		}
		months = n
	}

	trend, err := s.stats.Trend(r.Context(), userID, months)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"months": months,
		"trend":  charts.MonthlySeries(trend),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cats, err := s.categories.ListCategories(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	type categoryJSON struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Kind string `json:"kind"`
		Icon string `json:"icon,omitempty"`
	}
	out := make([]categoryJSON, len(cats))
	for i, c := range cats {
		out[i] = categoryJSON{ID: c.ID, Name: c.Name, Kind: string(c.Kind), Icon: c.Icon}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
