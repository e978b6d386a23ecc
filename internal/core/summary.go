package core

// Summary is the income/expense/balance triple derived from a filtered
// entry set.
type Summary struct {
	IncomeTotal  int64
	ExpenseTotal int64
	Balance      int64
}

// Summarize folds totals over the entries exactly as given. It applies
// no filtering of its own, so totals always match the visible list.
// Integer arithmetic throughout, no rounding.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Type {
		case Income:
			s.IncomeTotal += e.Amount
		case Expense:
			s.ExpenseTotal += e.Amount
		}
	}
	s.Balance = s.IncomeTotal - s.ExpenseTotal
	return s
}
