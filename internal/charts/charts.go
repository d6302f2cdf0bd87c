// Package charts reshapes aggregation results into the flat label/value
// series chart frontends consume.
package charts

import "finbook/internal/core"

// PieSlice is one labeled share of a pie chart.
type PieSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TimeSeries carries parallel label and value slices for a bar or line
// chart. Labels[i] pairs with Income[i] and Expense[i].
type TimeSeries struct {
	Labels  []string  `json:"labels"`
	Income  []float64 `json:"income"`
	Expense []float64 `json:"expense"`
}

// ExpensePie turns an expense category breakdown into pie slices,
// preserving the amount-descending order. Values are in currency units.
func ExpensePie(categories []core.CategoryAmount) []PieSlice {
	slices := make([]PieSlice, len(categories))
	for i, c := range categories {
		name := c.Name
		if name == "" {
			name = c.CategoryID
		}
		if c.Icon != "" {
			name = c.Icon + " " + name
		}
		slices[i] = PieSlice{Name: name, Value: c.Amount.Units()}
	}
	return slices
}

// DailySeries builds a chart series from a month's per-day buckets,
// labeling each point with the day of month.
func DailySeries(periods []core.PeriodTotals) TimeSeries {
	return buildSeries(periods, func(period string) string {
		if len(period) >= 10 {
			return period[8:10]
		}
		return period
	})
}

// MonthlySeries builds a chart series from per-month buckets, labeling
// each point with the "YYYY-MM" month.
func MonthlySeries(periods []core.PeriodTotals) TimeSeries {
	return buildSeries(periods, core.MonthOf)
}

func buildSeries(periods []core.PeriodTotals, label func(string) string) TimeSeries {
	s := TimeSeries{
		Labels:  make([]string, len(periods)),
		Income:  make([]float64, len(periods)),
		Expense: make([]float64, len(periods)),
	}
	for i, p := range periods {
		s.Labels[i] = label(p.Period)
		s.Income[i] = p.Income.Units()
		s.Expense[i] = p.Expense.Units()
	}
	return s
}
