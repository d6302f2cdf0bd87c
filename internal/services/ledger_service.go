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

// ErrBudgetSync marks a mutation whose ledger write succeeded but whose
// budget resync did not. The affected month's cached spent is stale
// until the next resync; callers surface a warning instead of retrying
// the mutation.
var ErrBudgetSync = errors.New("budget sync failed")

// LedgerService is the only mutation path into the ledger. It owns the
// resync trigger policy: every operation touching an expense entry
// resyncs each affected month before returning.
type LedgerService struct {
	ledger   LedgerStore
	budgets  *BudgetService
	notifier BudgetNotifier // optional
}

func NewLedgerService(ledger LedgerStore, budgets *BudgetService, notifier BudgetNotifier) *LedgerService {
	return &LedgerService{
		ledger:   ledger,
		budgets:  budgets,
		notifier: notifier,
	}
}

// AddTransaction validates, stores and — for expenses — resyncs the
// entry's month. The returned transaction carries the assigned id and
// normalized date.
func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	date, err := core.NormalizeDate(t.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = date
	t.ID = uuid.NewString()

	if err := s.ledger.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	if t.Kind == core.Expense {
		if err := s.resyncMonth(ctx, t.UserID, core.MonthOf(t.Date)); err != nil {
			return t, err
		}
	}
	return t, nil
}

// EditTransaction is a full replace. The old month is resynced when the
// old entry was an expense (amount and category edits must refresh the
// cached sum too); the new month is resynced when the edited entry is
// an expense landing in a different month.
func (s *LedgerService) EditTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		return core.Transaction{}, errors.New("missing transaction id")
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	date, err := core.NormalizeDate(t.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = date

	old, err := s.ledger.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	// Another user's entry is indistinguishable from a missing one.
	if old.UserID != t.UserID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, storage.ErrNotFound)
	}

	var oldMonth string
	if old.Kind == core.Expense {
		oldMonth = core.MonthOf(old.Date)
	}

	if err := s.ledger.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("edit transaction: %w", err)
	}

	if oldMonth != "" {
		if err := s.resyncMonth(ctx, t.UserID, oldMonth); err != nil {
			return t, err
		}
	}
	if t.Kind == core.Expense {
		if newMonth := core.MonthOf(t.Date); newMonth != oldMonth {
			if err := s.resyncMonth(ctx, t.UserID, newMonth); err != nil {
				return t, err
			}
		}
	}
	return t, nil
}

// DeleteTransaction removes an entry and resyncs its month if it was an
// expense.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	old, err := s.ledger.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if old.UserID != userID {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}

	if err := s.ledger.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if old.Kind == core.Expense {
		if err := s.resyncMonth(ctx, userID, core.MonthOf(old.Date)); err != nil {
			return err
		}
	}
	return nil
}

// FindTransactions runs a filtered search over a user's ledger, date
// descending.
func (s *LedgerService) FindTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	out, err := s.ledger.FindTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	return out, nil
}

// resyncMonth restores the month's budget invariant and publishes the
// refreshed state. The ledger write already happened, so a resync
// failure is reported as ErrBudgetSync rather than undoing anything;
// the stale value self-heals on the next resync. Publish failures are
// logged only.
func (s *LedgerService) resyncMonth(ctx context.Context, userID, month string) error {
	b, err := s.budgets.Resync(ctx, userID, month)
	if err != nil {
		slog.ErrorContext(ctx, "Budget resync failed after ledger mutation",
			"user_id", userID,
			"month", month,
			"error", err)
		return fmt.Errorf("%w for %s: %w", ErrBudgetSync, month, err)
	}

	overspent := b.Spent.Cents > b.Limit.Cents
	if s.notifier != nil {
		if err := s.notifier.NotifyBudgetResynced(ctx, b, overspent); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget event",
				"user_id", userID,
				"month", month,
				"error", err)
		}
	}

	slog.DebugContext(ctx, "Budget resynced",
		"user_id", userID,
		"month", month,
		"spent_cents", b.Spent.Cents,
		"limit_cents", b.Limit.Cents,
		"overspent", overspent)
	return nil
}
