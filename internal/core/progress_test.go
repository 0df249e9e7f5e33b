package core

import (
	"testing"
	"time"
)

var progressNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestComputeProgressZeroTarget(t *testing.T) {
	// No division by zero: a zero target is simply zero progress.
	p := ComputeProgress(SavingsGoal{Target: Money{}, Current: Money{Cents: 5000}}, progressNow)
	if p.Percentage != 0 {
		t.Fatalf("percentage = %v, want 0", p.Percentage)
	}
	if p.Achieved {
		t.Fatalf("zero target must not read as achieved")
	}
}

func TestComputeProgressClamped(t *testing.T) {
	cases := []struct {
		current int64
		want    float64
	}{
		{0, 0},
		{2500, 25},
		{10000, 100},
		{25000, 100}, // over-achievement clamps
	}
	for i, tc := range cases {
		g := SavingsGoal{Target: Money{Cents: 10000}, Current: Money{Cents: tc.current}}
		p := ComputeProgress(g, progressNow)
		if p.Percentage != tc.want {
			t.Fatalf("case %d: percentage = %v, want %v", i, p.Percentage, tc.want)
		}
		if p.Percentage < 0 || p.Percentage > 100 {
			t.Fatalf("case %d: percentage %v out of [0,100]", i, p.Percentage)
		}
	}
}

func TestComputeProgressPastDeadline(t *testing.T) {
	g := SavingsGoal{
		Target:   Money{Cents: 100000},
		Current:  Money{Cents: 10000},
		Deadline: strPtr("2024-01-10"),
	}
	p := ComputeProgress(g, progressNow)
	if p.MonthlyRequired.Cents != 0 {
		t.Fatalf("past deadline: monthly required = %d, want 0", p.MonthlyRequired.Cents)
	}
	if p.MonthsRemaining == nil || *p.MonthsRemaining != -5 {
		t.Fatalf("months remaining = %v, want -5", p.MonthsRemaining)
	}
	if p.DaysRemaining == nil || *p.DaysRemaining >= 0 {
		t.Fatalf("days remaining = %v, want negative", p.DaysRemaining)
	}
}

func TestComputeProgressSameMonthDeadline(t *testing.T) {
	// Deadline in the current month: zero months, not an infinite rate.
	g := SavingsGoal{
		Target:   Money{Cents: 100000},
		Current:  Money{Cents: 10000},
		Deadline: strPtr("2024-06-30"),
	}
	p := ComputeProgress(g, progressNow)
	if p.MonthsRemaining == nil || *p.MonthsRemaining != 0 {
		t.Fatalf("months remaining = %v, want 0", p.MonthsRemaining)
	}
	if p.MonthlyRequired.Cents != 0 {
		t.Fatalf("monthly required = %d, want 0", p.MonthlyRequired.Cents)
	}
	if p.DaysRemaining == nil || *p.DaysRemaining != 15 {
		t.Fatalf("days remaining = %v, want 15", p.DaysRemaining)
	}
}

func TestComputeProgressNoDeadline(t *testing.T) {
	for i, deadline := range []*string{nil, strPtr(""), strPtr("soon"), strPtr("2024-02-30")} {
		g := SavingsGoal{Target: Money{Cents: 100}, Deadline: deadline}
		p := ComputeProgress(g, progressNow)
		if p.MonthsRemaining != nil || p.DaysRemaining != nil {
			t.Fatalf("case %d: remaining fields must be nil without a parseable deadline", i)
		}
		if p.MonthlyRequired.Cents != 0 {
			t.Fatalf("case %d: monthly required = %d, want 0", i, p.MonthlyRequired.Cents)
		}
	}
}

func TestComputeProgressSixMonthPlan(t *testing.T) {
	g := SavingsGoal{
		Target:   Money{Cents: 12000000}, // 120000.00
		Current:  Money{Cents: 3000000},  // 30000.00
		Deadline: strPtr("2024-12-15"),   // six calendar months out
	}
	p := ComputeProgress(g, progressNow)
	if p.MonthsRemaining == nil || *p.MonthsRemaining != 6 {
		t.Fatalf("months remaining = %v, want 6", p.MonthsRemaining)
	}
	if p.MonthlyRequired.Cents != 1500000 {
		t.Fatalf("monthly required = %d cents, want 1500000", p.MonthlyRequired.Cents)
	}
	if p.Percentage != 25 {
		t.Fatalf("percentage = %v, want 25", p.Percentage)
	}
}

func TestComputeProgressAchievedWithoutDeadline(t *testing.T) {
	g := SavingsGoal{
		Target:  Money{Cents: 5000000},
		Current: Money{Cents: 5000000},
		Active:  true,
	}
	p := ComputeProgress(g, progressNow)
	if p.Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", p.Percentage)
	}
	if !p.Achieved {
		t.Fatalf("fully funded goal must read as achieved")
	}
	if p.MonthlyRequired.Cents != 0 {
		t.Fatalf("monthly required = %d, want 0", p.MonthlyRequired.Cents)
	}
	// Achievement is display-only; the active flag is untouched.
	if !g.Active {
		t.Fatalf("active flag must not flip on achievement")
	}
}

func TestComputeProgressFundedGoalWithFutureDeadline(t *testing.T) {
	g := SavingsGoal{
		Target:   Money{Cents: 1000},
		Current:  Money{Cents: 2000},
		Deadline: strPtr("2025-06-15"),
	}
	p := ComputeProgress(g, progressNow)
	if p.MonthlyRequired.Cents != 0 {
		t.Fatalf("funded goal must never report a negative or positive required rate, got %d", p.MonthlyRequired.Cents)
	}
	if p.MonthsRemaining == nil || *p.MonthsRemaining != 12 {
		t.Fatalf("months remaining = %v, want 12", p.MonthsRemaining)
	}
}
