package core

// TransactionFilter narrows ledger queries. Zero-value fields are
// ignored; amount bounds use pointers so a zero bound stays expressible.
// Results are always ordered by date descending.
type TransactionFilter struct {
	StartDate  string // inclusive
	EndDate    string // inclusive
	Kind       Kind
	CategoryID string
	MinAmount  *Money
	MaxAmount  *Money
}
