package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"

	// DateLayout is the canonical wire and storage format for calendar dates.
	DateLayout = "2006-01-02"
)

type (
	// TxType is the closed income/expense discriminant. Category filtering and
	// amount-sign display both rely on this set staying exactly two-variant.
	TxType string

	// Date is a calendar date with no time component.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry owned by one user.
	Transaction struct {
		ID         int64
		UserID     int64
		Type       TxType
		Amount     Money
		CategoryID int64
		Date       Date
		Memo       string
		CreatedAt  time.Time
	}

	// Category is a classification bucket scoped by transaction type.
	// Categories are seeded by migration and read-only at runtime.
	Category struct {
		ID           int64
		Name         string
		Icon         string
		Type         TxType
		DisplayOrder int
	}

	// SavingsGoal is a savings target with an optional deadline. Deadline is
	// kept as the stored string: an unparseable value disables the derived
	// time fields but is never silently dropped from the entity.
	SavingsGoal struct {
		ID        int64
		UserID    int64
		Name      string
		Target    Money
		Current   Money
		Deadline  *string
		Active    bool
		CreatedAt time.Time
	}
)

var (
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrNoCategory       = errors.New("category not selected")
	ErrInvalidTarget    = errors.New("target amount must be positive")
	ErrInvalidCurrent   = errors.New("current amount cannot be negative")
	ErrCategoryMismatch = errors.New("category type does not match transaction type")
	ErrMemoTooLong      = errors.New("memo too long (max 200 characters)")
	ErrNameTooLong      = errors.New("name too long (max 100 characters)")
)

// Valid reports whether t is one of the two legal variants.
func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Sign returns +1 for income and -1 for expense, for net arithmetic.
func (t TxType) Sign() int64 {
	if t == Income {
		return 1
	}
	return -1
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Key returns the canonical YYYY-MM-DD form used as the aggregation bucket key.
func (d Date) Key() string {
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Transaction) Validate() error {
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := ValidateCategorySelection(e.CategoryID); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Memo) > 200 {
		return ErrMemoTooLong
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return ErrNameTooLong
	}
	if err := ValidateGoalTarget(g.Target); err != nil {
		return err
	}
	if err := ValidateGoalCurrent(g.Current); err != nil {
		return err
	}
	if g.Deadline != nil && strings.TrimSpace(*g.Deadline) != "" {
		if err := ValidateDateString(*g.Deadline); err != nil {
			return err
		}
	}
	return nil
}
