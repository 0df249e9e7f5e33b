package core

import "time"

// GoalProgress holds the values derived from a savings goal at read time.
// Nothing here is ever persisted; it is recomputed on every fetch.
type GoalProgress struct {
	// Percentage is clamped to [0, 100]. Over-achievement shows as 100.
	Percentage float64

	// MonthlyRequired is the saving rate needed to close the gap by the
	// deadline. Zero when there is no deadline, the deadline is in the
	// current month or the past, or the goal is already funded.
	MonthlyRequired Money

	// DaysRemaining and MonthsRemaining are nil when the goal has no
	// parseable deadline. Both may be negative once the deadline has passed.
	DaysRemaining   *int
	MonthsRemaining *int

	// Achieved is a display state only; it never toggles the goal's active
	// flag, which stays an explicit user action.
	Achieved bool
}

// ComputeProgress derives progress figures for a goal relative to now.
//
// A zero or negative target yields zero progress rather than dividing by
// zero, and a deadline that fails to parse behaves exactly like an absent
// one while the stored string stays on the entity untouched.
func ComputeProgress(g SavingsGoal, now time.Time) GoalProgress {
	var p GoalProgress

	if g.Target.Cents > 0 {
		pct := float64(g.Current.Cents) / float64(g.Target.Cents) * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		p.Percentage = pct
	}
	p.Achieved = p.Percentage >= 100

	deadline, ok := parseDeadline(g.Deadline)
	if !ok {
		return p
	}

	months := wholeMonthsBetween(deadline, now)
	days := daysBetween(deadline, now)
	p.MonthsRemaining = &months
	p.DaysRemaining = &days

	// Only a future month can carry a required rate: months <= 0 would
	// otherwise divide by zero or report a negative "required" amount.
	if months > 0 && g.Target.Cents > g.Current.Cents {
		gap := g.Target.Cents - g.Current.Cents
		p.MonthlyRequired = Money{Cents: ceilDiv(gap, int64(months))}
	}

	return p
}

func parseDeadline(s *string) (Date, bool) {
	if s == nil || *s == "" {
		return Date{}, false
	}
	d, err := ParseDate(*s)
	if err != nil {
		return Date{}, false
	}
	return d, true
}

// wholeMonthsBetween returns the calendar-month distance from now to the
// deadline: the same month is 0, next month is 1, last month is -1. The day
// of month is deliberately ignored.
func wholeMonthsBetween(deadline Date, now time.Time) int {
	return (deadline.Year()-now.Year())*12 + int(deadline.Month()) - int(now.Month())
}

// daysBetween returns whole days from now's date to the deadline, negative
// when the deadline has passed. Time-of-day on now is discarded first.
func daysBetween(deadline Date, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(deadline.Time.Sub(today).Hours() / 24)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
