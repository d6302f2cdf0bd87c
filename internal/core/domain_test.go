package core

import "testing"

func TestKindValid(t *testing.T) {
	if !Income.Valid() || !Expense.Valid() {
		t.Fatal("income and expense must be valid kinds")
	}
	if Kind("transfer").Valid() {
		t.Fatal("unknown kind must be invalid")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount:     Money{Cents: 5000},
		Kind:       Expense,
		CategoryID: "cat_1",
		Date:       "2024-01-05",
		UserID:     "u1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Zero amounts are allowed; only negatives are rejected.
	zero := good
	zero.Amount = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should validate, got %v", err)
	}

	bads := []Transaction{
		{Amount: Money{Cents: -1}, Kind: Expense, CategoryID: "c", Date: "2024-01-05", UserID: "u"},
		{Amount: Money{Cents: 1}, Kind: "transfer", CategoryID: "c", Date: "2024-01-05", UserID: "u"},
		{Amount: Money{Cents: 1}, Kind: Expense, CategoryID: "c", Date: "not-a-date", UserID: "u"},
		{Amount: Money{Cents: 1}, Kind: Expense, CategoryID: "", Date: "2024-01-05", UserID: "u"},
		{Amount: Money{Cents: 1}, Kind: Expense, CategoryID: "c", Date: "2024-01-05", UserID: ""},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
