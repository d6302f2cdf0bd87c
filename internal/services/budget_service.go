package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// BudgetService keeps the cached spent value of budget rows consistent
// with the ledger. The invariant — spent equals the sum of the month's
// expense entries — is violated by every expense mutation and restored
// only by an explicit Resync call; nothing recomputes it in the
// background.
type BudgetService struct {
	budgets  BudgetStore
	ledger   LedgerStore
	profiles ProfileStore
}

func NewBudgetService(budgets BudgetStore, ledger LedgerStore, profiles ProfileStore) *BudgetService {
	return &BudgetService{
		budgets:  budgets,
		ledger:   ledger,
		profiles: profiles,
	}
}

// Resync recomputes spent from the ledger and persists it. An existing
// budget keeps its limit untouched; a missing one is created lazily
// with the user's default monthly budget as the limit. Recomputing from
// the ledger is idempotent, so a failed or interrupted resync heals on
// the next call.
func (s *BudgetService) Resync(ctx context.Context, userID, month string) (core.Budget, error) {
	if err := core.ParseMonth(month); err != nil {
		return core.Budget{}, err
	}

	spent, err := s.ledger.SumByKind(ctx, userID, month, core.Expense)
	if err != nil {
		return core.Budget{}, fmt.Errorf("sum expenses for %s: %w", month, err)
	}

	b, err := s.budgets.GetBudget(ctx, userID, month)
	switch {
	case err == nil:
		if err := s.budgets.UpdateBudgetSpent(ctx, b.ID, spent); err != nil {
			return core.Budget{}, fmt.Errorf("persist spent for %s: %w", month, err)
		}
		b.Spent = spent
	case errors.Is(err, storage.ErrNotFound):
		limit, err := s.profiles.DefaultMonthlyBudget(ctx, userID)
		if err != nil {
			return core.Budget{}, fmt.Errorf("load default budget: %w", err)
		}
		b = core.Budget{
			ID:     uuid.NewString(),
			UserID: userID,
			Month:  month,
			Limit:  limit,
			Spent:  spent,
		}
		if err := s.budgets.SaveBudget(ctx, b); err != nil {
			return core.Budget{}, fmt.Errorf("create budget for %s: %w", month, err)
		}
		slog.InfoContext(ctx, "Budget created lazily",
			"user_id", userID,
			"month", month,
			"limit_cents", limit.Cents,
			"spent_cents", spent.Cents)
	default:
		return core.Budget{}, fmt.Errorf("load budget for %s: %w", month, err)
	}

	return b, nil
}

// IsOverspent resyncs first — the comparison must never see a stale
// spent value — then reports spent > limit. Note the read has a write
// side effect.
func (s *BudgetService) IsOverspent(ctx context.Context, userID, month string) (bool, error) {
	b, err := s.Resync(ctx, userID, month)
	if err != nil {
		return false, err
	}
	return b.Spent.Cents > b.Limit.Cents, nil
}

// SetLimit configures the month's limit without touching the cached
// spent value. A missing budget row is created with spent recomputed
// from the ledger so the new row starts consistent.
func (s *BudgetService) SetLimit(ctx context.Context, userID, month string, limit core.Money) (core.Budget, error) {
	if err := core.ParseMonth(month); err != nil {
		return core.Budget{}, err
	}

	b, err := s.budgets.GetBudget(ctx, userID, month)
	switch {
	case err == nil:
		if err := s.budgets.UpdateBudgetLimit(ctx, b.ID, limit); err != nil {
			return core.Budget{}, fmt.Errorf("persist limit for %s: %w", month, err)
		}
		b.Limit = limit
		return b, nil
	case errors.Is(err, storage.ErrNotFound):
		spent, err := s.ledger.SumByKind(ctx, userID, month, core.Expense)
		if err != nil {
			return core.Budget{}, fmt.Errorf("sum expenses for %s: %w", month, err)
		}
		b = core.Budget{
			ID:     uuid.NewString(),
			UserID: userID,
			Month:  month,
			Limit:  limit,
			Spent:  spent,
		}
		if err := s.budgets.SaveBudget(ctx, b); err != nil {
			return core.Budget{}, fmt.Errorf("create budget for %s: %w", month, err)
		}
		return b, nil
	default:
		return core.Budget{}, fmt.Errorf("load budget for %s: %w", month, err)
	}
}

// ListBudgets returns a user's budgets, newest month first. The rows
// carry whatever spent values the last resyncs left behind.
func (s *BudgetService) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	budgets, err := s.budgets.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// RemainingBudget is limit minus spent; negative when overspent.
func RemainingBudget(limit, spent core.Money) core.Money {
	return limit.Sub(spent)
}

// SpentPercentage is spent over limit as a percentage. A non-positive
// limit yields 0 rather than dividing by zero.
func SpentPercentage(limit, spent core.Money) float64 {
	if limit.Cents <= 0 {
		return 0
	}
	return float64(spent.Cents) / float64(limit.Cents) * 100
}
