package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finbook/internal/core"
)

// StatsService computes read-only aggregations over the ledger. Empty
// periods produce zeroed results, never errors; storage failures always
// propagate so callers can tell "confirmed empty" from "query failed".
type StatsService struct {
	ledger LedgerStore
	now    func() time.Time
}

func NewStatsService(ledger LedgerStore) *StatsService {
	return &StatsService{
		ledger: ledger,
		now:    time.Now,
	}
}

// TotalsForScope sums income and expense within a date prefix scope.
// Balance is derived from the same two sums.
func (s *StatsService) TotalsForScope(ctx context.Context, userID, prefix string) (core.Totals, error) {
	scope, err := core.ParseScope(prefix)
	if err != nil {
		return core.Totals{}, err
	}

	income, err := s.ledger.SumByKind(ctx, userID, scope.Prefix, core.Income)
	if err != nil {
		return core.Totals{}, fmt.Errorf("sum income: %w", err)
	}
	expense, err := s.ledger.SumByKind(ctx, userID, scope.Prefix, core.Expense)
	if err != nil {
		return core.Totals{}, fmt.Errorf("sum expense: %w", err)
	}

	return core.Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}, nil
}

// CategoryBreakdown groups a scope's entries by category, one list per
// kind, each ordered by amount descending. The two queries are
// independent reads and run in parallel.
func (s *StatsService) CategoryBreakdown(ctx context.Context, userID, prefix string) (core.CategoryBreakdown, error) {
	scope, err := core.ParseScope(prefix)
	if err != nil {
		return core.CategoryBreakdown{}, err
	}

	var breakdown core.CategoryBreakdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		breakdown.Expense, err = s.ledger.CategorySums(gctx, userID, scope.Prefix, core.Expense)
		if err != nil {
			return fmt.Errorf("expense categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		breakdown.Income, err = s.ledger.CategorySums(gctx, userID, scope.Prefix, core.Income)
		if err != nil {
			return fmt.Errorf("income categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.CategoryBreakdown{}, err
	}
	return breakdown, nil
}

// SubPeriodBreakdown buckets a scope's entries by the next finer time
// unit (days within a month, months within a year), ascending. The
// series is sparse: sub-periods without transactions are omitted;
// callers needing a dense series gap-fill themselves, as Trend does.
func (s *StatsService) SubPeriodBreakdown(ctx context.Context, userID, prefix string) ([]core.PeriodTotals, error) {
	scope, err := core.ParseScope(prefix)
	if err != nil {
		return nil, err
	}
	periodLen, err := scope.SubPeriodLen()
	if err != nil {
		return nil, err
	}

	periods, err := s.ledger.PeriodSums(ctx, userID, scope.Prefix, periodLen)
	if err != nil {
		return nil, fmt.Errorf("sub-period breakdown: %w", err)
	}
	return periods, nil
}

// Trend returns exactly monthsBack entries ending at the current month
// inclusive, gap-filled with zeros — a dense series built for
// continuous charting. The window is exact calendar months.
func (s *StatsService) Trend(ctx context.Context, userID string, monthsBack int) ([]core.PeriodTotals, error) {
	if monthsBack < 1 {
		return nil, fmt.Errorf("%w: trend window must cover at least one month", core.ErrInvalidScope)
	}

	months := core.MonthsBack(s.now(), monthsBack)
	rows, err := s.ledger.MonthlyTotalsSince(ctx, userID, months[0]+"-01")
	if err != nil {
		return nil, fmt.Errorf("trend totals: %w", err)
	}

	byMonth := make(map[string]core.PeriodTotals, len(rows))
	for _, pt := range rows {
		byMonth[pt.Period] = pt
	}

	out := make([]core.PeriodTotals, len(months))
	for i, month := range months {
		if pt, ok := byMonth[month]; ok {
			out[i] = pt
		} else {
			out[i] = core.PeriodTotals{Period: month}
		}
	}
	return out, nil
}

// DailyStats assembles the full report for one day. An empty date means
// today.
func (s *StatsService) DailyStats(ctx context.Context, userID, date string) (core.DailyReport, error) {
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	if err := s.requireUnit(date, core.UnitDay); err != nil {
		return core.DailyReport{}, err
	}

	totals, err := s.TotalsForScope(ctx, userID, date)
	if err != nil {
		return core.DailyReport{}, err
	}
	categories, err := s.CategoryBreakdown(ctx, userID, date)
	if err != nil {
		return core.DailyReport{}, err
	}

	return core.DailyReport{
		Date:       date,
		Totals:     totals,
		Categories: categories,
	}, nil
}

// MonthlyStats assembles the full report for one month, including the
// per-day series. An empty month means the current month.
func (s *StatsService) MonthlyStats(ctx context.Context, userID, month string) (core.MonthlyReport, error) {
	if month == "" {
		month = s.now().Format("2006-01")
	}
	if err := s.requireUnit(month, core.UnitMonth); err != nil {
		return core.MonthlyReport{}, err
	}

	totals, err := s.TotalsForScope(ctx, userID, month)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	days, err := s.SubPeriodBreakdown(ctx, userID, month)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	categories, err := s.CategoryBreakdown(ctx, userID, month)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	return core.MonthlyReport{
		Month:      month,
		Totals:     totals,
		Days:       days,
		Categories: categories,
	}, nil
}

// YearlyStats assembles the full report for one year, including the
// per-month series. An empty year means the current year.
func (s *StatsService) YearlyStats(ctx context.Context, userID, year string) (core.YearlyReport, error) {
	if year == "" {
		year = s.now().Format("2006")
	}
	if err := s.requireUnit(year, core.UnitYear); err != nil {
		return core.YearlyReport{}, err
	}

	totals, err := s.TotalsForScope(ctx, userID, year)
	if err != nil {
		return core.YearlyReport{}, err
	}
	months, err := s.SubPeriodBreakdown(ctx, userID, year)
	if err != nil {
		return core.YearlyReport{}, err
	}
	categories, err := s.CategoryBreakdown(ctx, userID, year)
	if err != nil {
		return core.YearlyReport{}, err
	}

	return core.YearlyReport{
		Year:       year,
		Totals:     totals,
		Months:     months,
		Categories: categories,
	}, nil
}

func (s *StatsService) requireUnit(prefix string, unit core.Unit) error {
	scope, err := core.ParseScope(prefix)
	if err != nil {
		return err
	}
	if scope.Unit != unit {
		return fmt.Errorf("%w: %q is not a %s", core.ErrInvalidScope, prefix, unit)
	}
	return nil
}
