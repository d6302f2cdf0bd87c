package services

import (
	"context"

	"finbook/internal/core"
)

// Storage handles are injected into every service constructor; there is
// no ambient global store. The SQLite repository and the memory store
// both satisfy all three ports.

// LedgerStore is the transaction ledger: row lifecycle plus the
// aggregation queries the statistics engine is built on.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	FindTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error)

	SumByKind(ctx context.Context, userID, prefix string, kind core.Kind) (core.Money, error)
	CategorySums(ctx context.Context, userID, prefix string, kind core.Kind) ([]core.CategoryAmount, error)
	PeriodSums(ctx context.Context, userID, prefix string, periodLen int) ([]core.PeriodTotals, error)
	MonthlyTotalsSince(ctx context.Context, userID, fromDate string) ([]core.PeriodTotals, error)
}

// BudgetStore persists per (user, month) budget rows. Spent and limit
// are written through separate operations so a resync can never clobber
// a configured limit.
type BudgetStore interface {
	GetBudget(ctx context.Context, userID, month string) (core.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	SaveBudget(ctx context.Context, b core.Budget) error
	UpdateBudgetSpent(ctx context.Context, id string, spent core.Money) error
	UpdateBudgetLimit(ctx context.Context, id string, limit core.Money) error
}

// ProfileStore exposes the user profile collaborator. A missing user
// yields a zero default budget, not an error.
type ProfileStore interface {
	DefaultMonthlyBudget(ctx context.Context, userID string) (core.Money, error)
}

// BudgetNotifier publishes budget state after a resync. Implementations
// are best-effort; the ledger service logs and continues on failure.
type BudgetNotifier interface {
	NotifyBudgetResynced(ctx context.Context, b core.Budget, overspent bool) error
}
