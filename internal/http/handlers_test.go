package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finbook/internal/core"
	"finbook/internal/services"
	"finbook/internal/storage/memory"
)

func newTestServer() (*Server, *memory.Store) {
	store := memory.New()
	store.AddCategory(core.Category{ID: "cat_food", Name: "Food", Kind: core.Expense, Icon: "🍜"})
	store.AddCategory(core.Category{ID: "cat_salary", Name: "Salary", Kind: core.Income, Icon: "💰"})
	store.AddUser(core.User{ID: "u1", Name: "test", MonthlyBudget: core.Money{Cents: 20000}})

	budgets := services.NewBudgetService(store, store, store)
	ledger := services.NewLedgerService(store, budgets, nil)
	stats := services.NewStatsService(store)
	return NewServer(":0", ledger, budgets, stats, store, 6), store
}

func doJSON(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCreateTransactionAndBudgetStatus(t *testing.T) {
	s, _ := newTestServer()

	w := doJSON(t, s, http.MethodPost, "/api/transactions",
		`{"user_id":"u1","amount":"50.00","kind":"expense","category_id":"cat_food","date":"2024-01-05"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	tx, ok := resp["transaction"].(map[string]any)
	if !ok {
		t.Fatalf("missing transaction in response: %v", resp)
	}
	if tx["amount_cents"].(float64) != 5000 {
		t.Errorf("expected amount_cents 5000, got %v", tx["amount_cents"])
	}
	if tx["id"] == "" {
		t.Error("expected assigned id")
	}
	if _, hasWarning := resp["warning"]; hasWarning {
		t.Errorf("unexpected warning: %v", resp["warning"])
	}

	w = doJSON(t, s, http.MethodGet, "/api/budgets/status?user_id=u1&month=2024-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	status := decode(t, w)
	if status["spent_cents"].(float64) != 5000 {
		t.Errorf("expected spent_cents 5000, got %v", status["spent_cents"])
	}
	if status["limit_cents"].(float64) != 20000 {
		t.Errorf("expected limit_cents 20000 from user default, got %v", status["limit_cents"])
	}
	if status["remaining_cents"].(float64) != 15000 {
		t.Errorf("expected remaining_cents 15000, got %v", status["remaining_cents"])
	}
	if status["overspent"].(bool) {
		t.Error("should not be overspent")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s, _ := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"bad amount", `{"user_id":"u1","amount":"abc","kind":"expense","category_id":"cat_food","date":"2024-01-05"}`},
		{"negative amount", `{"user_id":"u1","amount":"-5","kind":"expense","category_id":"cat_food","date":"2024-01-05"}`},
		{"bad kind", `{"user_id":"u1","amount":"5","kind":"transfer","category_id":"cat_food","date":"2024-01-05"}`},
		{"bad date", `{"user_id":"u1","amount":"5","kind":"expense","category_id":"cat_food","date":"05/01/2024"}`},
		{"missing category", `{"user_id":"u1","amount":"5","kind":"expense","date":"2024-01-05"}`},
		{"missing user", `{"amount":"5","kind":"expense","category_id":"cat_food","date":"2024-01-05"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/transactions", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestEditAndDeleteTransaction(t *testing.T) {
	s, _ := newTestServer()

	w := doJSON(t, s, http.MethodPost, "/api/transactions",
		`{"user_id":"u1","amount":"50.00","kind":"expense","category_id":"cat_food","date":"2024-01-05"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", w.Code, w.Body.String())
	}
	id := decode(t, w)["transaction"].(map[string]any)["id"].(string)

	w = doJSON(t, s, http.MethodPut, "/api/transactions/"+id,
		`{"user_id":"u1","amount":"80.00","kind":"expense","category_id":"cat_food","date":"2024-02-05"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("edit: %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/budgets/status?user_id=u1&month=2024-02", "")
	if got := decode(t, w)["spent_cents"].(float64); got != 8000 {
		t.Errorf("expected february spent 8000 after edit, got %v", got)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id+"?user_id=u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id+"?user_id=u1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete should 404, got %d", w.Code)
	}
}

func TestSearchTransactions(t *testing.T) {
	s, _ := newTestServer()

	for _, body := range []string{
		`{"user_id":"u1","amount":"50","kind":"expense","category_id":"cat_food","date":"2024-01-05"}`,
		`{"user_id":"u1","amount":"20","kind":"expense","category_id":"cat_food","date":"2024-01-10"}`,
		`{"user_id":"u1","amount":"1000","kind":"income","category_id":"cat_salary","date":"2024-01-15"}`,
	} {
		if w := doJSON(t, s, http.MethodPost, "/api/transactions", body); w.Code != http.StatusCreated {
			t.Fatalf("create: %d: %s", w.Code, w.Body.String())
		}
	}

	w := doJSON(t, s, http.MethodGet, "/api/transactions?user_id=u1&kind=expense&min_amount=30", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d: %s", w.Code, w.Body.String())
	}
	txs := decode(t, w)["transactions"].([]any)
	if len(txs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(txs))
	}

	if w := doJSON(t, s, http.MethodGet, "/api/transactions?user_id=u1&kind=transfer", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid kind should 400, got %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/transactions", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing user_id should 400, got %d", w.Code)
	}
}

func TestSetLimitAndListBudgets(t *testing.T) {
	s, _ := newTestServer()

	w := doJSON(t, s, http.MethodPut, "/api/budgets/limit",
		`{"user_id":"u1","month":"2024-01","limit":"300.00"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set limit: %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["limit_cents"].(float64); got != 30000 {
		t.Errorf("expected limit_cents 30000, got %v", got)
	}

	w = doJSON(t, s, http.MethodPut, "/api/budgets/limit",
		`{"user_id":"u1","month":"2024-13","limit":"300.00"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid month should 400, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/budgets?user_id=u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d: %s", w.Code, w.Body.String())
	}
	budgets := decode(t, w)["budgets"].([]any)
	if len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(budgets))
	}
}

func TestMonthlyStatsEndpoint(t *testing.T) {
	s, _ := newTestServer()

	for _, body := range []string{
		`{"user_id":"u1","amount":"100","kind":"income","category_id":"cat_salary","date":"2024-01-01"}`,
		`{"user_id":"u1","amount":"70","kind":"expense","category_id":"cat_food","date":"2024-01-05"}`,
	} {
		if w := doJSON(t, s, http.MethodPost, "/api/transactions", body); w.Code != http.StatusCreated {
			t.Fatalf("create: %d: %s", w.Code, w.Body.String())
		}
	}

	w := doJSON(t, s, http.MethodGet, "/api/stats/monthly?user_id=u1&month=2024-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)

	totals := resp["totals"].(map[string]any)
	if totals["balance_cents"].(float64) != 3000 {
		t.Errorf("expected balance_cents 3000, got %v", totals["balance_cents"])
	}
	days := resp["days"].(map[string]any)
	if labels := days["labels"].([]any); len(labels) != 2 {
		t.Errorf("expected 2 day labels, got %v", labels)
	}
	pie := resp["expense_pie"].([]any)
	if len(pie) != 1 {
		t.Fatalf("expected 1 pie slice, got %d", len(pie))
	}

	// Wrong granularity is a client error.
	w = doJSON(t, s, http.MethodGet, "/api/stats/monthly?user_id=u1&month=2024", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("year input should 400, got %d", w.Code)
	}
}

func TestTrendEndpoint(t *testing.T) {
	s, _ := newTestServer()

	w := doJSON(t, s, http.MethodGet, "/api/stats/trend?user_id=u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("trend: %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["months"].(float64) != 6 {
		t.Errorf("expected default window 6, got %v", resp["months"])
	}
	trend := resp["trend"].(map[string]any)
	if labels := trend["labels"].([]any); len(labels) != 6 {
		t.Errorf("trend must be dense: expected 6 labels, got %d", len(labels))
	}

	if w := doJSON(t, s, http.MethodGet, "/api/stats/trend?user_id=u1&months=0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("months=0 should 400, got %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/stats/trend?user_id=u1&months=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("months=abc should 400, got %d", w.Code)
	}
}

func TestListCategoriesEndpoint(t *testing.T) {
	s, _ := newTestServer()

	w := doJSON(t, s, http.MethodGet, "/api/categories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("categories: %d: %s", w.Code, w.Body.String())
	}
	cats := decode(t, w)["categories"].([]any)
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer()

	cases := []struct{ method, target string }{
		{http.MethodPatch, "/api/transactions"},
		{http.MethodPost, "/api/transactions/some-id"},
		{http.MethodPost, "/api/budgets?user_id=u1"},
		{http.MethodDelete, "/api/stats/monthly?user_id=u1"},
	}
	for _, tc := range cases {
		w := doJSON(t, s, tc.method, tc.target, "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tc.method, tc.target, w.Code)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer()

	for _, target := range []string{"/healthz", "/readyz"} {
		w := doJSON(t, s, http.MethodGet, target, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, w.Code)
		}
	}
}
