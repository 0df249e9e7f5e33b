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

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return r.listCategories(ctx,
		`SELECT id, name, icon, type, display_order FROM categories ORDER BY type, display_order`)
}

// ListCategoriesByType returns only one side of the taxonomy, ordered for
// display.
func (r *SQLiteRepository) ListCategoriesByType(ctx context.Context, t core.TxType) ([]core.Category, error) {
	return r.listCategories(ctx,
		`SELECT id, name, icon, type, display_order FROM categories WHERE type = ? ORDER BY display_order`,
		string(t))
}

func (r *SQLiteRepository) listCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &typ, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TxType(typ)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	var typ string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, icon, type, display_order FROM categories WHERE id = ?`,
		id).Scan(&c.ID, &c.Name, &c.Icon, &typ, &c.DisplayOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.TxType(typ)
	return c, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount_cents, category_id, date, memo, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, string(tx.Type), tx.Amount.Cents, tx.CategoryID, tx.Date.Key(), tx.Memo, now)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	tx.ID = id
	tx.CreatedAt = now
	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, amount_cents, category_id, date, memo, created_at
		 FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListTransactionsParams selects one owner's entries for a month window,
// optionally narrowed to one type or one date.
type ListTransactionsParams struct {
	UserID int64
	Year   int
	Month  int

	Type *core.TxType
	Date *core.Date
}

// ListTransactions returns the window newest first (date, then creation).
func (r *SQLiteRepository) ListTransactions(ctx context.Context, p ListTransactionsParams) ([]core.Transaction, error) {
	from := core.NewDate(p.Year, p.Month, 1)
	to := core.Date{Time: from.AddDate(0, 1, 0)}

	query := `SELECT id, user_id, type, amount_cents, category_id, date, memo, created_at
		FROM transactions WHERE user_id = ? AND date >= ? AND date < ?`
	args := []any{p.UserID, from.Key(), to.Key()}

	if p.Type != nil {
		query += ` AND type = ?`
		args = append(args, string(*p.Type))
	}
	if p.Date != nil {
		query += ` AND date = ?`
		args = append(args, p.Date.Key())
	}
	query += ` ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// UpdateTransactionParams is a partial update: nil fields are left alone.
// Type is deliberately not updatable; changing sides is a delete + re-create.
type UpdateTransactionParams struct {
	ID     int64
	UserID int64

	Amount     *core.Money
	CategoryID *int64
	Date       *core.Date
	Memo       *string
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, p UpdateTransactionParams) error {
	var sets []string
	var args []any
	if p.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, p.Amount.Cents)
	}
	if p.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *p.CategoryID)
	}
	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, p.Date.Key())
	}
	if p.Memo != nil {
		sets = append(sets, "memo = ?")
		args = append(args, *p.Memo)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, p.ID, p.UserID)

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return notFoundOnZero(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return notFoundOnZero(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var typ, date string
	if err := row.Scan(&tx.ID, &tx.UserID, &typ, &tx.Amount.Cents, &tx.CategoryID, &date, &tx.Memo, &tx.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TxType(typ)
	// Defensive coercion: one bad stored date must not block the whole set,
	// so it degrades to the zero Date instead of failing the scan.
	if d, err := core.ParseDate(date); err == nil {
		tx.Date = d
	}
	return tx, nil
}
