package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/auth"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	authSvc := auth.NewService(repo, time.Hour, 4)
	ledger := services.NewLedgerService(repo, nil, nil)
	goals := services.NewGoalsService(repo, nil, nil)

	srv := NewServer(":0", authSvc, ledger, goals, nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testAPI{t: t, server: ts}
}

// do sends a JSON request and decodes the response body into out when the
// caller passes a destination.
func (a *testAPI) do(method, path, token string, body any, out any) *http.Response {
	a.t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reqBody)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (a *testAPI) signup(email string) string {
	a.t.Helper()

	var session sessionResponse
	resp := a.do(http.MethodPost, "/api/auth/signup", "",
		map[string]string{"email": email, "password": "correct-horse"}, &session)
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(a.t, session.Token)
	return session.Token
}

func (a *testAPI) expenseCategoryID(token string) int64 {
	a.t.Helper()

	var cats []categoryResponse
	resp := a.do(http.MethodGet, "/api/categories?type=expense", token, nil, &cats)
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(a.t, cats)
	return cats[0].ID
}

func (a *testAPI) incomeCategoryID(token string) int64 {
	a.t.Helper()

	var cats []categoryResponse
	resp := a.do(http.MethodGet, "/api/categories?type=income", token, nil, &cats)
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(a.t, cats)
	return cats[0].ID
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	token := api.signup("user@example.com")

	// Duplicate signup conflicts.
	resp := api.do(http.MethodPost, "/api/auth/signup", "",
		map[string]string{"email": "user@example.com", "password": "correct-horse"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Wrong password and unknown email both come back as 401.
	resp = api.do(http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "user@example.com", "password": "wrong-horse!"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = api.do(http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "nobody@example.com", "password": "correct-horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Weak password is a validation failure.
	resp = api.do(http.MethodPost, "/api/auth/signup", "",
		map[string]string{"email": "other@example.com", "password": "short"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Logout revokes the session.
	resp = api.do(http.MethodPost, "/api/auth/logout", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = api.do(http.MethodGet, "/api/categories", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDataRoutesRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/categories", "/api/transactions", "/api/calendar", "/api/goals", "/api/stats"} {
		resp := api.do(http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestTransactionCreateThenFetch(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("user@example.com")
	catID := api.expenseCategoryID(token)

	var created transactionResponse
	resp := api.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type":        "expense",
		"amount":      "12.50",
		"category_id": catID,
		"date":        "2024-06-15",
		"memo":        "lunch",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(1250), created.AmountCents)
	assert.Equal(t, "12.50", created.Amount)

	var fetched transactionResponse
	resp = api.do(http.MethodGet, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "expense", fetched.Type)
	assert.Equal(t, int64(1250), fetched.AmountCents)
	assert.Equal(t, catID, fetched.CategoryID)
	assert.Equal(t, "2024-06-15", fetched.Date)
	assert.Equal(t, "lunch", fetched.Memo)

	// The month list holds it exactly once.
	var list []transactionResponse
	resp = api.do(http.MethodGet, "/api/transactions?year=2024&month=6", token, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestTransactionValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("user@example.com")
	expenseCat := api.expenseCategoryID(token)
	incomeCat := api.incomeCategoryID(token)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"type": "expense", "amount": "0", "category_id": expenseCat, "date": "2024-06-15"}},
		{"negative amount", map[string]any{"type": "expense", "amount": "-5.00", "category_id": expenseCat, "date": "2024-06-15"}},
		{"bad type", map[string]any{"type": "transfer", "amount": "5.00", "category_id": expenseCat, "date": "2024-06-15"}},
		{"bad date", map[string]any{"type": "expense", "amount": "5.00", "category_id": expenseCat, "date": "15/06/2024"}},
		{"missing category", map[string]any{"type": "expense", "amount": "5.00", "category_id": 0, "date": "2024-06-15"}},
		{"category mismatch", map[string]any{"type": "expense", "amount": "5.00", "category_id": incomeCat, "date": "2024-06-15"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(http.MethodPost, "/api/transactions", token, tt.body, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		})
	}
}

func TestTransactionOwnerIsolation(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup("alice@example.com")
	bob := api.signup("bob@example.com")
	catID := api.expenseCategoryID(alice)

	var created transactionResponse
	resp := api.do(http.MethodPost, "/api/transactions", alice, map[string]any{
		"type": "expense", "amount": "9.99", "category_id": catID, "date": "2024-06-15",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(http.MethodGet, fmt.Sprintf("/api/transactions/%d", created.ID), bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = api.do(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var list []transactionResponse
	resp = api.do(http.MethodGet, "/api/transactions?year=2024&month=6", bob, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, list)
}

func TestCalendarReflectsMutations(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("user@example.com")
	expenseCat := api.expenseCategoryID(token)
	incomeCat := api.incomeCategoryID(token)

	resp := api.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "income", "amount": "5000.00", "category_id": incomeCat, "date": "2024-06-01",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Prime the cache.
	var cal calendarResponse
	resp = api.do(http.MethodGet, "/api/calendar?year=2024&month=6", token, nil, &cal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, cal.Days, 1)

	// A mutation must show up on the very next read.
	var created transactionResponse
	resp = api.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "120.00", "category_id": expenseCat, "date": "2024-06-15",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(http.MethodGet, "/api/calendar?year=2024&month=6", token, nil, &cal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, cal.Days, 2)

	// Days are newest first; only dates with entries appear.
	assert.Equal(t, "2024-06-15", cal.Days[0].Date)
	assert.Equal(t, "2024-06-01", cal.Days[1].Date)
	assert.Equal(t, int64(12000), cal.Days[0].Total.ExpenseCents)
	assert.Equal(t, int64(-12000), cal.Days[0].Total.NetCents)
	assert.Equal(t, int64(500000), cal.Days[1].Total.IncomeCents)
	assert.Equal(t, int64(488000), cal.MonthTotal.NetCents)

	// Deleting empties the bucket rather than zeroing it.
	resp = api.do(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.do(http.MethodGet, "/api/calendar?year=2024&month=6", token, nil, &cal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, cal.Days, 1)
	assert.Equal(t, "2024-06-01", cal.Days[0].Date)
}

func TestCalendarSingleDateView(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("user@example.com")
	catID := api.expenseCategoryID(token)

	for _, date := range []string{"2024-06-15", "2024-06-15", "2024-06-20"} {
		resp := api.do(http.MethodPost, "/api/transactions", token, map[string]any{
			"type": "expense", "amount": "10.00", "category_id": catID, "date": date,
		}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var day calendarDayResponse
	resp := api.do(http.MethodGet, "/api/calendar?year=2024&month=6&date=2024-06-15", token, nil, &day)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-06-15", day.Date)
	assert.Len(t, day.Transactions, 2)
	assert.Equal(t, int64(2000), day.Total.ExpenseCents)

	// A date with no entries yields an empty view, not an error.
	resp = api.do(http.MethodGet, "/api/calendar?year=2024&month=6&date=2024-06-25", token, nil, &day)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, day.Transactions)
}

func TestGoalLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("user@example.com")

	var created goalResponse
	resp := api.do(http.MethodPost, "/api/goals", token, map[string]any{
		"name":     "Emergency fund",
		"target":   "120000.00",
		"current":  "30000.00",
		"deadline": "2030-12-15",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, created.Active)
	assert.Equal(t, float64(25), created.Progress.Percentage)
	assert.False(t, created.Progress.Achieved)
	require.NotNil(t, created.Progress.MonthsRemaining)
	assert.Positive(t, created.Progress.MonthlyRequiredCents)

	// Funding it past the target clamps at 100 and flips achieved.
	var updated goalResponse
	resp = api.do(http.MethodPut, fmt.Sprintf("/api/goals/%d", created.ID), token, map[string]any{
		"current": "150000.00",
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100), updated.Progress.Percentage)
	assert.True(t, updated.Progress.Achieved)
	assert.True(t, updated.Active, "achievement must not deactivate the goal")
	assert.Zero(t, updated.Progress.MonthlyRequiredCents)

	// Clearing the deadline drops the derived time fields.
	resp = api.do(http.MethodPut, fmt.Sprintf("/api/goals/%d", created.ID), token, map[string]any{
		"clear_deadline": true,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, updated.Deadline)
	assert.Nil(t, updated.Progress.MonthsRemaining)
	assert.Nil(t, updated.Progress.DaysRemaining)

	// Pausing hides it from the active list but not the full list.
	resp = api.do(http.MethodPut, fmt.Sprintf("/api/goals/%d/active", created.ID), token, map[string]any{
		"active": false,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, updated.Active)

	var active []goalResponse
	resp = api.do(http.MethodGet, "/api/goals?active=true", token, nil, &active)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, active)

	var all []goalResponse
	resp = api.do(http.MethodGet, "/api/goals", token, nil, &all)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, all, 1)

	resp = api.do(http.MethodDelete, fmt.Sprintf("/api/goals/%d", created.ID), token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = api.do(http.MethodGet, fmt.Sprintf("/api/goals/%d", created.ID), token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGoalValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("user@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty name", map[string]any{"name": "  ", "target": "100.00"}},
		{"zero target", map[string]any{"name": "Fund", "target": "0"}},
		{"negative target", map[string]any{"name": "Fund", "target": "-100.00"}},
		{"bad deadline", map[string]any{"name": "Fund", "target": "100.00", "deadline": "next year"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(http.MethodPost, "/api/goals", token, tt.body, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		})
	}
}

func TestStats(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("user@example.com")
	expenseCat := api.expenseCategoryID(token)
	incomeCat := api.incomeCategoryID(token)

	for _, tx := range []map[string]any{
		{"type": "income", "amount": "5000.00", "category_id": incomeCat, "date": "2024-06-01"},
		{"type": "expense", "amount": "120.00", "category_id": expenseCat, "date": "2024-06-10"},
		{"type": "expense", "amount": "80.00", "category_id": expenseCat, "date": "2024-06-12"},
	} {
		resp := api.do(http.MethodPost, "/api/transactions", token, tx, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var stats statsResponse
	resp := api.do(http.MethodGet, "/api/stats?year=2024&month=6", token, nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, stats.TransactionCount)
	assert.Equal(t, int64(500000), stats.Total.IncomeCents)
	assert.Equal(t, int64(20000), stats.Total.ExpenseCents)
	assert.Equal(t, int64(480000), stats.Total.NetCents)
	require.Len(t, stats.ByCategory, 2)
	assert.Equal(t, incomeCat, stats.ByCategory[0].CategoryID)
	assert.Equal(t, int64(500000), stats.ByCategory[0].TotalCents)
	assert.Equal(t, expenseCat, stats.ByCategory[1].CategoryID)
	assert.Equal(t, int64(20000), stats.ByCategory[1].TotalCents)
	assert.Equal(t, 2, stats.ByCategory[1].Count)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := api.do(http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
