package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finbook/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction inserts a new ledger entry.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	const q = `
		INSERT INTO transactions (id, user_id, kind, category_id, amount_cents, date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q, t.ID, t.UserID, string(t.Kind), t.CategoryID, t.Amount.Cents, t.Date, t.Note)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents,
		"date", t.Date)
	return nil
}

// GetTransaction loads a single ledger entry by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	const q = `
		SELECT id, user_id, kind, category_id, amount_cents, date, note
		FROM transactions WHERE id = ?`

	var t core.Transaction
	var kind string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.UserID, &kind, &t.CategoryID, &t.Amount.Cents, &t.Date, &t.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Kind = core.Kind(kind)
	return t, nil
}

// UpdateTransaction replaces every mutable field of an existing entry.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	const q = `
		UPDATE transactions
		SET kind = ?, category_id = ?, amount_cents = ?, date = ?, note = ?
		WHERE id = ? AND user_id = ?`

	res, err := r.db.ExecContext(ctx, q, string(t.Kind), t.CategoryID, t.Amount.Cents, t.Date, t.Note, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a ledger entry owned by the given user.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// FindTransactions returns a user's entries matching the filter, date
// descending.
func (r *SQLiteRepository) FindTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, user_id, kind, category_id, amount_cents, date, note
		FROM transactions WHERE user_id = ?`)
	args := []any{userID}

	if f.StartDate != "" {
		b.WriteString(" AND date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		b.WriteString(" AND date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Kind != "" {
		b.WriteString(" AND kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.CategoryID != "" {
		b.WriteString(" AND category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.MinAmount != nil {
		b.WriteString(" AND amount_cents >= ?")
		args = append(args, f.MinAmount.Cents)
	}
	if f.MaxAmount != nil {
		b.WriteString(" AND amount_cents <= ?")
		args = append(args, f.MaxAmount.Cents)
	}
	b.WriteString(" ORDER BY date DESC")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.CategoryID, &t.Amount.Cents, &t.Date, &t.Note); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// SumByKind sums the amounts of one kind within a date prefix scope.
func (r *SQLiteRepository) SumByKind(ctx context.Context, userID, prefix string, kind core.Kind) (core.Money, error) {
	const q = `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE user_id = ? AND kind = ? AND date LIKE ?`

	var cents int64
	if err := r.db.QueryRowContext(ctx, q, userID, string(kind), prefix+"%").Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum %s for %q: %w", kind, prefix, err)
	}
	return core.Money{Cents: cents}, nil
}

// CategorySums groups one kind's entries within a scope by category,
// summed and ordered by total descending (category id on ties).
func (r *SQLiteRepository) CategorySums(ctx context.Context, userID, prefix string, kind core.Kind) ([]core.CategoryAmount, error) {
	const q = `
		SELECT c.id, c.name, c.icon, SUM(t.amount_cents) AS total
		FROM transactions t
		JOIN categories c ON t.category_id = c.id
		WHERE t.user_id = ? AND t.kind = ? AND t.date LIKE ?
		GROUP BY c.id, c.name, c.icon
		ORDER BY total DESC, c.id ASC`

	rows, err := r.db.QueryContext(ctx, q, userID, string(kind), prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("category sums for %q: %w", prefix, err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.CategoryID, &ca.Name, &ca.Icon, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category sums: %w", err)
	}
	return out, nil
}

// PeriodSums buckets entries within a scope by the date prefix of the
// given length, ascending, with income and expense folded into one row
// per period.
func (r *SQLiteRepository) PeriodSums(ctx context.Context, userID, prefix string, periodLen int) ([]core.PeriodTotals, error) {
	const q = `
		SELECT substr(date, 1, ?) AS period, kind, SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND date LIKE ?
		GROUP BY period, kind
		ORDER BY period ASC`

	rows, err := r.db.QueryContext(ctx, q, periodLen, userID, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("period sums for %q: %w", prefix, err)
	}
	defer rows.Close()
	return foldPeriodRows(rows)
}

// MonthlyTotalsSince groups entries dated on or after fromDate by month,
// ascending. Used by the trend report, which gap-fills the result.
func (r *SQLiteRepository) MonthlyTotalsSince(ctx context.Context, userID, fromDate string) ([]core.PeriodTotals, error) {
	const q = `
		SELECT substr(date, 1, 7) AS period, kind, SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND date >= ?
		GROUP BY period, kind
		ORDER BY period ASC`

	rows, err := r.db.QueryContext(ctx, q, userID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("monthly totals since %q: %w", fromDate, err)
	}
	defer rows.Close()
	return foldPeriodRows(rows)
}

// foldPeriodRows merges (period, kind, sum) rows into one PeriodTotals
// per period, relying on the query's ascending period order.
func foldPeriodRows(rows *sql.Rows) ([]core.PeriodTotals, error) {
	var out []core.PeriodTotals
	for rows.Next() {
		var period, kind string
		var cents int64
		if err := rows.Scan(&period, &kind, &cents); err != nil {
			return nil, fmt.Errorf("scan period sum: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Period != period {
			out = append(out, core.PeriodTotals{Period: period})
		}
		pt := &out[len(out)-1]
		if core.Kind(kind) == core.Income {
			pt.Income.Cents += cents
		} else {
			pt.Expense.Cents += cents
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period sums: %w", err)
	}
	return out, nil
}

// GetBudget loads the budget row for (user, month).
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, month string) (core.Budget, error) {
	const q = `
		SELECT id, user_id, month, limit_cents, spent_cents
		FROM budgets WHERE user_id = ? AND month = ?`

	var b core.Budget
	err := r.db.QueryRowContext(ctx, q, userID, month).Scan(
		&b.ID, &b.UserID, &b.Month, &b.Limit.Cents, &b.Spent.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s/%s: %w", userID, month, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// ListBudgets returns every budget of a user, newest month first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	const q = `
		SELECT id, user_id, month, limit_cents, spent_cents
		FROM budgets WHERE user_id = ? ORDER BY month DESC`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Month, &b.Limit.Cents, &b.Spent.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// SaveBudget inserts a new budget row. The (user, month) pair is unique;
// concurrent lazy creation surfaces as a constraint error here.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	const q = `
		INSERT INTO budgets (id, user_id, month, limit_cents, spent_cents)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q, b.ID, b.UserID, b.Month, b.Limit.Cents, b.Spent.Cents)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// UpdateBudgetSpent writes only the cached spent value.
func (r *SQLiteRepository) UpdateBudgetSpent(ctx context.Context, id string, spent core.Money) error {
	const q = `
		UPDATE budgets SET spent_cents = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, spent.Cents, id)
	if err != nil {
		return fmt.Errorf("update budget spent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateBudgetLimit writes only the configured limit; spent is untouched.
func (r *SQLiteRepository) UpdateBudgetLimit(ctx context.Context, id string, limit core.Money) error {
	const q = `
		UPDATE budgets SET limit_cents = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, limit.Cents, id)
	if err != nil {
		return fmt.Errorf("update budget limit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateUser inserts a user profile row.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	const q = `INSERT INTO users (id, name, monthly_budget_cents) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.MonthlyBudget.Cents); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// DefaultMonthlyBudget returns the user's standing default budget.
// A missing user means no default was configured: zero, not an error.
func (r *SQLiteRepository) DefaultMonthlyBudget(ctx context.Context, userID string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly_budget_cents FROM users WHERE id = ?`, userID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("default monthly budget: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// ListCategories returns all categories, seeded ones included.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, icon FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}
