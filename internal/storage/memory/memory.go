// Package memory provides an in-process store implementing the same
// ports as the SQLite repository. It backs tests and ad-hoc runs where
// no database file is wanted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"finbook/internal/core"
	"finbook/internal/storage"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget // keyed "userID|month"
	users        map[string]core.User
	categories   map[string]core.Category

	// forced errors for failure-path tests; failErr is checked by every
	// operation, budgetFailErr only by budget row operations
	failErr       error
	budgetFailErr error
}

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.Budget),
		users:        make(map[string]core.User),
		categories:   make(map[string]core.Category),
	}
}

// SetFailure makes every subsequent operation return err until reset
// with nil. Lets callers exercise storage failure handling.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// SetBudgetFailure forces only budget row operations to fail, leaving
// the ledger usable. Exercises the mutation-succeeded-resync-failed
// path.
func (s *Store) SetBudgetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgetFailErr = err
}

func (s *Store) fail() error {
	return s.failErr
}

func (s *Store) failBudget() error {
	if s.failErr != nil {
		return s.failErr
	}
	return s.budgetFailErr
}

func budgetKey(userID, month string) string {
	return userID + "|" + month
}

func (s *Store) AddCategory(c core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

func (s *Store) AddUser(u core.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	if _, exists := s.transactions[t.ID]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return core.Transaction{}, err
	}
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	old, ok := s.transactions[t.ID]
	if !ok || old.UserID != t.UserID {
		return fmt.Errorf("transaction %s: %w", t.ID, storage.ErrNotFound)
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) FindTransactions(_ context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return nil, err
	}

	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if f.StartDate != "" && t.Date < f.StartDate {
			continue
		}
		if f.EndDate != "" && t.Date > f.EndDate {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.CategoryID != "" && t.CategoryID != f.CategoryID {
			continue
		}
		if f.MinAmount != nil && t.Amount.Cents < f.MinAmount.Cents {
			continue
		}
		if f.MaxAmount != nil && t.Amount.Cents > f.MaxAmount.Cents {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SumByKind(_ context.Context, userID, prefix string, kind core.Kind) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return core.Money{}, err
	}

	var sum core.Money
	for _, t := range s.transactions {
		if t.UserID == userID && t.Kind == kind && strings.HasPrefix(t.Date, prefix) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (s *Store) CategorySums(_ context.Context, userID, prefix string, kind core.Kind) ([]core.CategoryAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return nil, err
	}

	sums := make(map[string]int64)
	for _, t := range s.transactions {
		if t.UserID == userID && t.Kind == kind && strings.HasPrefix(t.Date, prefix) {
			sums[t.CategoryID] += t.Amount.Cents
		}
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for id, cents := range sums {
		ca := core.CategoryAmount{CategoryID: id, Amount: core.Money{Cents: cents}}
		if c, ok := s.categories[id]; ok {
			ca.Name = c.Name
			ca.Icon = c.Icon
		}
		out = append(out, ca)
	}
	// Amount descending, category id ascending on ties, matching the
	// SQL ordering contract.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (s *Store) PeriodSums(_ context.Context, userID, prefix string, periodLen int) ([]core.PeriodTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return nil, err
	}

	buckets := make(map[string]*core.PeriodTotals)
	for _, t := range s.transactions {
		if t.UserID != userID || !strings.HasPrefix(t.Date, prefix) || len(t.Date) < periodLen {
			continue
		}
		period := t.Date[:periodLen]
		pt, ok := buckets[period]
		if !ok {
			pt = &core.PeriodTotals{Period: period}
			buckets[period] = pt
		}
		if t.Kind == core.Income {
			pt.Income = pt.Income.Add(t.Amount)
		} else {
			pt.Expense = pt.Expense.Add(t.Amount)
		}
	}
	return sortedPeriods(buckets), nil
}

func (s *Store) MonthlyTotalsSince(_ context.Context, userID, fromDate string) ([]core.PeriodTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return nil, err
	}

	buckets := make(map[string]*core.PeriodTotals)
	for _, t := range s.transactions {
		if t.UserID != userID || t.Date < fromDate {
			continue
		}
		month := core.MonthOf(t.Date)
		pt, ok := buckets[month]
		if !ok {
			pt = &core.PeriodTotals{Period: month}
			buckets[month] = pt
		}
		if t.Kind == core.Income {
			pt.Income = pt.Income.Add(t.Amount)
		} else {
			pt.Expense = pt.Expense.Add(t.Amount)
		}
	}
	return sortedPeriods(buckets), nil
}

func sortedPeriods(buckets map[string]*core.PeriodTotals) []core.PeriodTotals {
	out := make([]core.PeriodTotals, 0, len(buckets))
	for _, pt := range buckets {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func (s *Store) GetBudget(_ context.Context, userID, month string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failBudget(); err != nil {
		return core.Budget{}, err
	}
	b, ok := s.budgets[budgetKey(userID, month)]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %s/%s: %w", userID, month, storage.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failBudget(); err != nil {
		return nil, err
	}
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (s *Store) SaveBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failBudget(); err != nil {
		return err
	}
	key := budgetKey(b.UserID, b.Month)
	if _, exists := s.budgets[key]; exists {
		return fmt.Errorf("budget %s/%s already exists", b.UserID, b.Month)
	}
	s.budgets[key] = b
	return nil
}

func (s *Store) UpdateBudgetSpent(_ context.Context, id string, spent core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failBudget(); err != nil {
		return err
	}
	for key, b := range s.budgets {
		if b.ID == id {
			b.Spent = spent
			s.budgets[key] = b
			return nil
		}
	}
	return fmt.Errorf("budget %s: %w", id, storage.ErrNotFound)
}

func (s *Store) UpdateBudgetLimit(_ context.Context, id string, limit core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failBudget(); err != nil {
		return err
	}
	for key, b := range s.budgets {
		if b.ID == id {
			b.Limit = limit
			s.budgets[key] = b
			return nil
		}
	}
	return fmt.Errorf("budget %s: %w", id, storage.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) DefaultMonthlyBudget(_ context.Context, userID string) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return core.Money{}, err
	}
	u, ok := s.users[userID]
	if !ok {
		return core.Money{}, nil
	}
	return u.MonthlyBudget, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
