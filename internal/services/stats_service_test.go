package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finbook/internal/core"
)

func seedJanuary(t *testing.T, f *fixture) {
	t.Helper()
	f.addTx(t, core.Income, 10000, "cat_salary", "2024-01-01")
	f.addTx(t, core.Expense, 3000, "cat_food", "2024-01-05")
	f.addTx(t, core.Expense, 4000, "cat_housing", "2024-01-05")
	f.addTx(t, core.Expense, 2000, "cat_transport", "2024-02-10")
}

func TestTotalsForScope(t *testing.T) {
	f := newFixture()
	seedJanuary(t, f)
	ctx := context.Background()

	t.Run("month", func(t *testing.T) {
		got, err := f.stats.TotalsForScope(ctx, "u1", "2024-01")
		if err != nil {
			t.Fatalf("totals: %v", err)
		}
		if got.Income.Cents != 10000 || got.Expense.Cents != 7000 || got.Balance.Cents != 3000 {
			t.Errorf("unexpected totals: %+v", got)
		}
	})

	t.Run("day", func(t *testing.T) {
		got, err := f.stats.TotalsForScope(ctx, "u1", "2024-01-05")
		if err != nil {
			t.Fatalf("totals: %v", err)
		}
		if got.Income.Cents != 0 || got.Expense.Cents != 7000 {
			t.Errorf("unexpected totals: %+v", got)
		}
	})

	t.Run("year", func(t *testing.T) {
		got, err := f.stats.TotalsForScope(ctx, "u1", "2024")
		if err != nil {
			t.Fatalf("totals: %v", err)
		}
		if got.Expense.Cents != 9000 || got.Balance.Cents != 1000 {
			t.Errorf("unexpected totals: %+v", got)
		}
	})

	t.Run("empty period", func(t *testing.T) {
		got, err := f.stats.TotalsForScope(ctx, "u1", "2019-07")
		if err != nil {
			t.Fatalf("empty period must not error: %v", err)
		}
		if got.Income.Cents != 0 || got.Expense.Cents != 0 || got.Balance.Cents != 0 {
			t.Errorf("expected zeroed totals, got %+v", got)
		}
	})

	t.Run("invalid scope", func(t *testing.T) {
		for _, prefix := range []string{"", "2024-1", "2024-01-05 10:00", "garbage"} {
			if _, err := f.stats.TotalsForScope(ctx, "u1", prefix); !errors.Is(err, core.ErrInvalidScope) {
				t.Errorf("%q: expected ErrInvalidScope, got %v", prefix, err)
			}
		}
	})
}

func TestCategoryBreakdownOrdering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.addTx(t, core.Expense, 4000, "cat_housing", "2024-01-02")
	f.addTx(t, core.Expense, 1000, "cat_food", "2024-01-03")
	f.addTx(t, core.Expense, 2000, "cat_food", "2024-01-04")
	// Ties with housing at 4000.
	f.addTx(t, core.Expense, 4000, "cat_transport", "2024-01-05")
	f.addTx(t, core.Income, 10000, "cat_salary", "2024-01-01")

	got, err := f.stats.CategoryBreakdown(ctx, "u1", "2024-01")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}

	wantExpense := []string{"cat_housing", "cat_transport", "cat_food"}
	if len(got.Expense) != len(wantExpense) {
		t.Fatalf("expected %d expense categories, got %d", len(wantExpense), len(got.Expense))
	}
	for i := 1; i < len(got.Expense); i++ {
		if got.Expense[i].Amount.Cents > got.Expense[i-1].Amount.Cents {
			t.Error("expense amounts must be non-increasing")
		}
	}
	for i, id := range wantExpense {
		if got.Expense[i].CategoryID != id {
			t.Errorf("expense position %d: expected %s, got %s", i, id, got.Expense[i].CategoryID)
		}
	}
	if got.Expense[0].Name != "Housing" || got.Expense[0].Icon == "" {
		t.Errorf("category metadata should be joined in: %+v", got.Expense[0])
	}

	if len(got.Income) != 1 || got.Income[0].CategoryID != "cat_salary" {
		t.Errorf("unexpected income breakdown: %+v", got.Income)
	}
}

func TestSubPeriodBreakdown(t *testing.T) {
	f := newFixture()
	seedJanuary(t, f)
	ctx := context.Background()

	t.Run("days within month", func(t *testing.T) {
		got, err := f.stats.SubPeriodBreakdown(ctx, "u1", "2024-01")
		if err != nil {
			t.Fatalf("breakdown: %v", err)
		}
		// Sparse: only the two days with entries, ascending.
		if len(got) != 2 {
			t.Fatalf("expected 2 day buckets, got %d", len(got))
		}
		if got[0].Period != "2024-01-01" || got[1].Period != "2024-01-05" {
			t.Errorf("unexpected periods: %+v", got)
		}
		if got[1].Expense.Cents != 7000 {
			t.Errorf("2024-01-05 expense: expected 7000, got %d", got[1].Expense.Cents)
		}
	})

	t.Run("months within year", func(t *testing.T) {
		got, err := f.stats.SubPeriodBreakdown(ctx, "u1", "2024")
		if err != nil {
			t.Fatalf("breakdown: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 month buckets, got %d", len(got))
		}
		if got[0].Period != "2024-01" || got[1].Period != "2024-02" {
			t.Errorf("unexpected periods: %+v", got)
		}
	})

	t.Run("day scope has no sub-periods", func(t *testing.T) {
		if _, err := f.stats.SubPeriodBreakdown(ctx, "u1", "2024-01-05"); !errors.Is(err, core.ErrInvalidScope) {
			t.Errorf("expected ErrInvalidScope, got %v", err)
		}
	})
}

func TestTrendIsDense(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.stats.now = func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}

	f.addTx(t, core.Expense, 3000, "cat_food", "2023-11-10")
	f.addTx(t, core.Income, 9000, "cat_salary", "2024-02-01")
	f.addTx(t, core.Expense, 1000, "cat_food", "2024-03-02")
	// Outside the 6-month window.
	f.addTx(t, core.Expense, 50000, "cat_housing", "2023-09-01")

	got, err := f.stats.Trend(ctx, "u1", 6)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}

	want := []string{"2023-10", "2023-11", "2023-12", "2024-01", "2024-02", "2024-03"}
	if len(got) != len(want) {
		t.Fatalf("expected exactly %d entries, got %d", len(want), len(got))
	}
	for i, month := range want {
		if got[i].Period != month {
			t.Errorf("position %d: expected %s, got %s", i, month, got[i].Period)
		}
	}
	if got[1].Expense.Cents != 3000 {
		t.Errorf("2023-11 expense: expected 3000, got %d", got[1].Expense.Cents)
	}
	if got[4].Income.Cents != 9000 {
		t.Errorf("2024-02 income: expected 9000, got %d", got[4].Income.Cents)
	}
	// Gap months are present and zeroed.
	for _, i := range []int{0, 2, 3} {
		if got[i].Income.Cents != 0 || got[i].Expense.Cents != 0 {
			t.Errorf("%s should be zero-filled, got %+v", got[i].Period, got[i])
		}
	}
}

func TestTrendRejectsNonPositiveWindow(t *testing.T) {
	f := newFixture()
	for _, n := range []int{0, -3} {
		if _, err := f.stats.Trend(context.Background(), "u1", n); !errors.Is(err, core.ErrInvalidScope) {
			t.Errorf("monthsBack=%d: expected ErrInvalidScope, got %v", n, err)
		}
	}
}

func TestMonthlyStatsReport(t *testing.T) {
	f := newFixture()
	seedJanuary(t, f)

	got, err := f.stats.MonthlyStats(context.Background(), "u1", "2024-01")
	if err != nil {
		t.Fatalf("monthly stats: %v", err)
	}
	if got.Month != "2024-01" {
		t.Errorf("expected month 2024-01, got %s", got.Month)
	}
	if got.Totals.Balance.Cents != 3000 {
		t.Errorf("expected balance 3000, got %d", got.Totals.Balance.Cents)
	}
	if len(got.Days) != 2 {
		t.Errorf("expected 2 day buckets, got %d", len(got.Days))
	}
	if len(got.Categories.Expense) != 2 {
		t.Errorf("expected 2 expense categories, got %d", len(got.Categories.Expense))
	}

	// Granularity mismatch is rejected, not coerced.
	if _, err := f.stats.MonthlyStats(context.Background(), "u1", "2024"); !errors.Is(err, core.ErrInvalidScope) {
		t.Errorf("expected ErrInvalidScope for year input, got %v", err)
	}
}

func TestDailyStatsDefaultsToToday(t *testing.T) {
	f := newFixture()
	f.stats.now = func() time.Time {
		return time.Date(2024, time.January, 5, 9, 30, 0, 0, time.UTC)
	}
	seedJanuary(t, f)

	got, err := f.stats.DailyStats(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("daily stats: %v", err)
	}
	if got.Date != "2024-01-05" {
		t.Errorf("expected date 2024-01-05, got %s", got.Date)
	}
	if got.Totals.Expense.Cents != 7000 {
		t.Errorf("expected expense 7000, got %d", got.Totals.Expense.Cents)
	}
}

func TestYearlyStatsReport(t *testing.T) {
	f := newFixture()
	seedJanuary(t, f)

	got, err := f.stats.YearlyStats(context.Background(), "u1", "2024")
	if err != nil {
		t.Fatalf("yearly stats: %v", err)
	}
	if got.Year != "2024" || len(got.Months) != 2 {
		t.Errorf("unexpected report: year %s, %d month buckets", got.Year, len(got.Months))
	}
	if got.Totals.Expense.Cents != 9000 {
		t.Errorf("expected expense 9000, got %d", got.Totals.Expense.Cents)
	}
}

func TestStatsPropagateStorageErrors(t *testing.T) {
	f := newFixture()
	seedJanuary(t, f)
	ctx := context.Background()

	boom := errors.New("disk gone")
	f.store.SetFailure(boom)
	defer f.store.SetFailure(nil)

	if _, err := f.stats.TotalsForScope(ctx, "u1", "2024-01"); !errors.Is(err, boom) {
		t.Errorf("TotalsForScope: expected storage error, got %v", err)
	}
	if _, err := f.stats.CategoryBreakdown(ctx, "u1", "2024-01"); !errors.Is(err, boom) {
		t.Errorf("CategoryBreakdown: expected storage error, got %v", err)
	}
	if _, err := f.stats.SubPeriodBreakdown(ctx, "u1", "2024-01"); !errors.Is(err, boom) {
		t.Errorf("SubPeriodBreakdown: expected storage error, got %v", err)
	}
	if _, err := f.stats.Trend(ctx, "u1", 3); !errors.Is(err, boom) {
		t.Errorf("Trend: expected storage error, got %v", err)
	}
}
