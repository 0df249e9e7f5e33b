package core

import "sort"

// DailyTotal is the per-date aggregate used by the calendar view. Net is
// recomputed from the running sums on every accumulation, so it can never
// drift from Income - Expense.
type DailyTotal struct {
	Income  Money
	Expense Money
	Net     Money
}

// MonthCalendar holds one reporting window's transactions bucketed by date.
// Built fresh from the current transaction set on every fetch, never stored.
type MonthCalendar struct {
	totals map[string]DailyTotal
	byDate map[string][]Transaction
}

// Aggregate buckets transactions by calendar date in a single pass. Each
// transaction lands in exactly one bucket and the final sums are independent
// of input order. Dates without transactions get no bucket at all.
func Aggregate(txs []Transaction) MonthCalendar {
	c := MonthCalendar{
		totals: make(map[string]DailyTotal),
		byDate: make(map[string][]Transaction),
	}
	for _, tx := range txs {
		key := tx.Date.Key()
		t := c.totals[key]
		switch tx.Type {
		case Income:
			t.Income.Cents += tx.Amount.Cents
		case Expense:
			t.Expense.Cents += tx.Amount.Cents
		}
		t.Net.Cents = t.Income.Cents - t.Expense.Cents
		c.totals[key] = t
		c.byDate[key] = append(c.byDate[key], tx)
	}
	return c
}

// Total returns the aggregate for one date key and whether the date has any
// transactions at all.
func (c MonthCalendar) Total(dateKey string) (DailyTotal, bool) {
	t, ok := c.totals[dateKey]
	return t, ok
}

// Totals returns the full date-keyed aggregate set.
func (c MonthCalendar) Totals() map[string]DailyTotal {
	return c.totals
}

// Dates returns the bucket keys sorted descending. Display grouping is by
// date value, independent of the order transactions were accumulated in.
func (c MonthCalendar) Dates() []string {
	keys := make([]string, 0, len(c.totals))
	for k := range c.totals {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// On returns only the transactions dated dateKey: the single-date view,
// never mixed with the full set.
func (c MonthCalendar) On(dateKey string) []Transaction {
	return c.byDate[dateKey]
}

// MonthTotal sums the whole window into one DailyTotal-shaped figure for the
// stats surface.
func (c MonthCalendar) MonthTotal() DailyTotal {
	var m DailyTotal
	for _, t := range c.totals {
		m.Income.Cents += t.Income.Cents
		m.Expense.Cents += t.Expense.Cents
	}
	m.Net.Cents = m.Income.Cents - m.Expense.Cents
	return m
}
