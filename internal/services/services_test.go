package services

import (
	"context"
	"testing"

	"finbook/internal/core"
	"finbook/internal/storage/memory"
)

// fixture wires all services onto one shared in-memory store with the
// default categories and a single user seeded.
type fixture struct {
	store   *memory.Store
	budgets *BudgetService
	ledger  *LedgerService
	stats   *StatsService
}

func newFixture() *fixture {
	store := memory.New()
	store.AddCategory(core.Category{ID: "cat_food", Name: "Food", Kind: core.Expense, Icon: "🍜"})
	store.AddCategory(core.Category{ID: "cat_transport", Name: "Transport", Kind: core.Expense, Icon: "🚗"})
	store.AddCategory(core.Category{ID: "cat_housing", Name: "Housing", Kind: core.Expense, Icon: "🏠"})
	store.AddCategory(core.Category{ID: "cat_salary", Name: "Salary", Kind: core.Income, Icon: "💰"})
	store.AddUser(core.User{ID: "u1", Name: "test", MonthlyBudget: core.Money{Cents: 20000}})

	budgets := NewBudgetService(store, store, store)
	return &fixture{
		store:   store,
		budgets: budgets,
		ledger:  NewLedgerService(store, budgets, nil),
		stats:   NewStatsService(store),
	}
}

// addTx inserts a ledger entry through the mutation path and fails the
// test on error.
func (f *fixture) addTx(t *testing.T, kind core.Kind, cents int64, category, date string) core.Transaction {
	t.Helper()
	tx, err := f.ledger.AddTransaction(context.Background(), core.Transaction{
		Amount:     core.Money{Cents: cents},
		Kind:       kind,
		CategoryID: category,
		Date:       date,
		UserID:     "u1",
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return tx
}

// recordingNotifier captures budget events for assertions.
type recordingNotifier struct {
	budgets   []core.Budget
	overspent []bool
	err       error
}

func (r *recordingNotifier) NotifyBudgetResynced(_ context.Context, b core.Budget, overspent bool) error {
	r.budgets = append(r.budgets, b)
	r.overspent = append(r.overspent, overspent)
	return r.err
}
