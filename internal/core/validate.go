package core

// Shared validation predicates. All are pure and side-effect free: they run
// before any store call, return nil on pass and a human-readable error on
// fail, and never panic on expected bad input.

// ValidateAmount checks a ledger amount. Strictly positive: a zero amount is
// rejected on every entry path, creation and edit alike.
func ValidateAmount(m Money) error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateCategorySelection checks that a category was actually chosen.
func ValidateCategorySelection(id int64) error {
	if id <= 0 {
		return ErrNoCategory
	}
	return nil
}

// ValidateGoalTarget checks a goal's target amount (> 0).
func ValidateGoalTarget(m Money) error {
	if m.Cents <= 0 {
		return ErrInvalidTarget
	}
	return nil
}

// ValidateGoalCurrent checks a goal's current amount (>= 0; exceeding the
// target is allowed).
func ValidateGoalCurrent(m Money) error {
	if m.Cents < 0 {
		return ErrInvalidCurrent
	}
	return nil
}

// ValidateDateString checks that raw parses to a real calendar date.
func ValidateDateString(raw string) error {
	_, err := ParseDate(raw)
	return err
}

// ValidateCategoryMatch enforces that a transaction only references a
// category of its own type. The store does not enforce this, so it is
// rejected here before any mutation is issued.
func ValidateCategoryMatch(txType TxType, cat Category) error {
	if txType != cat.Type {
		return ErrCategoryMismatch
	}
	return nil
}
