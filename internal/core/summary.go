package core

// Totals is the income/expense/balance triple for one scope. Balance is
// always Income - Expense from the same query pass.
type Totals struct {
	Income  Money
	Expense Money
	Balance Money
}

// CategoryAmount is an amount aggregated on one category.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Icon       string
	Amount     Money
}

// CategoryBreakdown holds per-kind category aggregates, each ordered by
// amount descending (category id ascending on ties).
type CategoryBreakdown struct {
	Expense []CategoryAmount
	Income  []CategoryAmount
}

// PeriodTotals is the income/expense pair for one sub-period key
// ("YYYY-MM-DD" inside a month, "YYYY-MM" inside a year or trend).
type PeriodTotals struct {
	Period  string
	Income  Money
	Expense Money
}

// DailyReport is the assembled statistics for a single day.
type DailyReport struct {
	Date string
	Totals
	Categories CategoryBreakdown
}

// MonthlyReport adds the per-day series for the month.
type MonthlyReport struct {
	Month string
	Totals
	Days       []PeriodTotals
	Categories CategoryBreakdown
}

// YearlyReport adds the per-month series for the year.
type YearlyReport struct {
	Year string
	Totals
	Months     []PeriodTotals
	Categories CategoryBreakdown
}
