package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kakeibo/internal/core"
)

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (user_id, name, target_cents, current_cents, deadline, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.Target.Cents, g.Current.Cents, deadlineArg(g.Deadline), g.Active, now)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("last insert id: %w", err)
	}
	g.ID = id
	g.CreatedAt = now
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id int64) (core.SavingsGoal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, target_cents, current_cents, deadline, is_active, created_at
		 FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// ListGoals returns the owner's goals, newest first.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, target_cents, current_cents, deadline, is_active, created_at
		 FROM savings_goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoalParams is a partial update: nil fields are left alone.
// ClearDeadline removes the deadline; it wins over Deadline when both are set.
type UpdateGoalParams struct {
	ID     int64
	UserID int64

	Name          *string
	Target        *core.Money
	Current       *core.Money
	Deadline      *string
	ClearDeadline bool
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, p UpdateGoalParams) error {
	var sets []string
	var args []any
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Target != nil {
		sets = append(sets, "target_cents = ?")
		args = append(args, p.Target.Cents)
	}
	if p.Current != nil {
		sets = append(sets, "current_cents = ?")
		args = append(args, p.Current.Cents)
	}
	if p.ClearDeadline {
		sets = append(sets, "deadline = NULL")
	} else if p.Deadline != nil {
		sets = append(sets, "deadline = ?")
		args = append(args, *p.Deadline)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, p.ID, p.UserID)

	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return notFoundOnZero(res)
}

// SetGoalActive toggles the active flag on its own, independent of edits.
func (r *SQLiteRepository) SetGoalActive(ctx context.Context, userID, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET is_active = ? WHERE id = ? AND user_id = ?`,
		active, id, userID)
	if err != nil {
		return fmt.Errorf("set goal active: %w", err)
	}
	return notFoundOnZero(res)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return notFoundOnZero(res)
}

func deadlineArg(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func scanGoal(row rowScanner) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	var deadline sql.NullString
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Target.Cents, &g.Current.Cents, &deadline, &g.Active, &g.CreatedAt); err != nil {
		return core.SavingsGoal{}, err
	}
	if deadline.Valid {
		g.Deadline = &deadline.String
	}
	return g, nil
}
