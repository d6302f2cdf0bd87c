package core

import (
	"errors"
	"strings"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	Kind string

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry. Edits are full replacements;
	// the ledger service is the only mutation path and owns the budget
	// resync every expense mutation requires.
	Transaction struct {
		ID         string
		Amount     Money
		Kind       Kind
		CategoryID string
		Date       string // "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS"
		Note       string
		UserID     string
	}

	// Budget is the per (user, month) record. Spent is a cached value
	// derived from the ledger; it is only ever written by a resync.
	Budget struct {
		ID     string
		UserID string
		Month  string // "YYYY-MM"
		Limit  Money
		Spent  Money
	}

	Category struct {
		ID   string
		Name string
		Kind Kind
		Icon string
	}

	User struct {
		ID            string
		Name          string
		MonthlyBudget Money // default limit for lazily created budgets
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyUser     = errors.New("empty user")
)

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (t Transaction) Validate() error {
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if _, err := NormalizeDate(t.Date); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if len(t.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}
