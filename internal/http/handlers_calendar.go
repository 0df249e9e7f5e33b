package http

import (
	"net/http"
	"sort"
	"strings"

	"kakeibo/internal/core"
)

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	mp, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	uid := userID(r)

	// The single-date view is carved out of the month response so both
	// paths serve from the same cache entry.
	dateFilter := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateFilter != "" {
		if _, err := core.ParseDate(dateFilter); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	key := calendarCacheKey(uid, mp.Year, mp.Month)
	resp, ok := s.calendarCache.Get(key)
	if !ok {
		cal, _, err := s.ledger.MonthCalendar(r.Context(), uid, mp.Year, mp.Month)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp = buildCalendarResponse(mp.Year, mp.Month, cal)
		s.calendarCache.Set(key, resp)
	}

	if dateFilter == "" {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	for _, day := range resp.Days {
		if day.Date == dateFilter {
			writeJSON(w, http.StatusOK, day)
			return
		}
	}
	writeJSON(w, http.StatusOK, calendarDayResponse{
		Date:         dateFilter,
		Transactions: []transactionResponse{},
	})
}

func buildCalendarResponse(year, month int, cal core.MonthCalendar) calendarResponse {
	resp := calendarResponse{
		Year:       year,
		Month:      month,
		Days:       make([]calendarDayResponse, 0, len(cal.Totals())),
		MonthTotal: toDailyTotalResponse(cal.MonthTotal()),
	}
	for _, key := range cal.Dates() {
		total, _ := cal.Total(key)
		txs := cal.On(key)
		day := calendarDayResponse{
			Date:         key,
			Total:        toDailyTotalResponse(total),
			Transactions: make([]transactionResponse, 0, len(txs)),
		}
		for _, tx := range txs {
			day.Transactions = append(day.Transactions, toTransactionResponse(tx))
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	mp, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	uid := userID(r)

	cal, txs, err := s.ledger.MonthCalendar(r.Context(), uid, mp.Year, mp.Month)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	byID := make(map[int64]core.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	sums := make(map[int64]*categoryStatResponse)
	for _, tx := range txs {
		stat, ok := sums[tx.CategoryID]
		if !ok {
			cat := byID[tx.CategoryID]
			stat = &categoryStatResponse{
				CategoryID: tx.CategoryID,
				Name:       cat.Name,
				Icon:       cat.Icon,
				Type:       string(tx.Type),
			}
			sums[tx.CategoryID] = stat
		}
		stat.TotalCents += tx.Amount.Cents
		stat.Count++
	}

	byCategory := make([]categoryStatResponse, 0, len(sums))
	for _, stat := range sums {
		stat.Total = core.Money{Cents: stat.TotalCents}.String()
		byCategory = append(byCategory, *stat)
	}
	// Largest buckets first, ties broken by category ID for a stable order.
	sort.Slice(byCategory, func(i, j int) bool {
		if byCategory[i].TotalCents != byCategory[j].TotalCents {
			return byCategory[i].TotalCents > byCategory[j].TotalCents
		}
		return byCategory[i].CategoryID < byCategory[j].CategoryID
	})

	writeJSON(w, http.StatusOK, statsResponse{
		Year:             mp.Year,
		Month:            mp.Month,
		Total:            toDailyTotalResponse(cal.MonthTotal()),
		TransactionCount: len(txs),
		ByCategory:       byCategory,
	})
}
