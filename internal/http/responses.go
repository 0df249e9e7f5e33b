package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type categoryResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	Type         string `json:"type"`
	DisplayOrder int    `json:"display_order"`
}

type transactionResponse struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	CategoryID  int64     `json:"category_id"`
	Date        string    `json:"date"`
	Memo        string    `json:"memo"`
	CreatedAt   time.Time `json:"created_at"`
}

type dailyTotalResponse struct {
	Income       string `json:"income"`
	IncomeCents  int64  `json:"income_cents"`
	Expense      string `json:"expense"`
	ExpenseCents int64  `json:"expense_cents"`
	Net          string `json:"net"`
	NetCents     int64  `json:"net_cents"`
}

type calendarDayResponse struct {
	Date         string                `json:"date"`
	Total        dailyTotalResponse    `json:"total"`
	Transactions []transactionResponse `json:"transactions"`
}

type calendarResponse struct {
	Year       int                   `json:"year"`
	Month      int                   `json:"month"`
	Days       []calendarDayResponse `json:"days"`
	MonthTotal dailyTotalResponse    `json:"month_total"`
}

type progressResponse struct {
	Percentage           float64 `json:"percentage"`
	MonthlyRequired      string  `json:"monthly_required"`
	MonthlyRequiredCents int64   `json:"monthly_required_cents"`
	DaysRemaining        *int    `json:"days_remaining"`
	MonthsRemaining      *int    `json:"months_remaining"`
	Achieved             bool    `json:"achieved"`
}

type goalResponse struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Target       string           `json:"target"`
	TargetCents  int64            `json:"target_cents"`
	Current      string           `json:"current"`
	CurrentCents int64            `json:"current_cents"`
	Deadline     *string          `json:"deadline"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
	Progress     progressResponse `json:"progress"`
}

type categoryStatResponse struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Type       string `json:"type"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
	Count      int    `json:"count"`
}

type statsResponse struct {
	Year             int                    `json:"year"`
	Month            int                    `json:"month"`
	Total            dailyTotalResponse     `json:"total"`
	TransactionCount int                    `json:"transaction_count"`
	ByCategory       []categoryStatResponse `json:"by_category"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		CategoryID:  tx.CategoryID,
		Date:        tx.Date.Key(),
		Memo:        tx.Memo,
		CreatedAt:   tx.CreatedAt,
	}
}

func toDailyTotalResponse(t core.DailyTotal) dailyTotalResponse {
	return dailyTotalResponse{
		Income:       t.Income.String(),
		IncomeCents:  t.Income.Cents,
		Expense:      t.Expense.String(),
		ExpenseCents: t.Expense.Cents,
		Net:          t.Net.String(),
		NetCents:     t.Net.Cents,
	}
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Icon:         c.Icon,
		Type:         string(c.Type),
		DisplayOrder: c.DisplayOrder,
	}
}

func toGoalResponse(g services.GoalWithProgress) goalResponse {
	return goalResponse{
		ID:           g.Goal.ID,
		Name:         g.Goal.Name,
		Target:       g.Goal.Target.String(),
		TargetCents:  g.Goal.Target.Cents,
		Current:      g.Goal.Current.String(),
		CurrentCents: g.Goal.Current.Cents,
		Deadline:     g.Goal.Deadline,
		Active:       g.Goal.Active,
		CreatedAt:    g.Goal.CreatedAt,
		Progress: progressResponse{
			Percentage:           g.Progress.Percentage,
			MonthlyRequired:      g.Progress.MonthlyRequired.String(),
			MonthlyRequiredCents: g.Progress.MonthlyRequired.Cents,
			DaysRemaining:        g.Progress.DaysRemaining,
			MonthsRemaining:      g.Progress.MonthsRemaining,
			Achieved:             g.Progress.Achieved,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain and storage errors to HTTP statuses:
// validation failures are 422, auth failures 401, missing rows 404,
// duplicate signups 409, everything else a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNoCategory),
		errors.Is(err, core.ErrInvalidTarget),
		errors.Is(err, core.ErrInvalidCurrent),
		errors.Is(err, core.ErrCategoryMismatch),
		errors.Is(err, core.ErrMemoTooLong),
		errors.Is(err, core.ErrNameTooLong):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
