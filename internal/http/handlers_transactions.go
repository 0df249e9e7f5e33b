package http

import (
	"net/http"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		cats []core.Category
		err  error
	)
	if t := strings.TrimSpace(r.URL.Query().Get("type")); t != "" {
		cats, err = s.ledger.CategoriesByType(r.Context(), core.TxType(t))
	} else {
		cats, err = s.ledger.Categories(r.Context())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	tx := core.Transaction{
		UserID:     userID(r),
		Type:       core.TxType(req.Type),
		Amount:     core.Money{Cents: cents},
		CategoryID: req.CategoryID,
		Date:       date,
		Memo:       strings.TrimSpace(req.Memo),
	}

	saved, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateCalendar(saved.UserID, saved.Date.Year(), int(saved.Date.Month()))
	s.logger.InfoContext(r.Context(), "Transaction created",
		log.FieldUserID, saved.UserID,
		log.FieldTxID, saved.ID,
		log.FieldTxType, string(saved.Type),
		log.FieldAmountCents, saved.Amount.Cents)
	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.ledger.GetTransaction(r.Context(), userID(r), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	mp, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := storage.ListTransactionsParams{
		UserID: userID(r),
		Year:   mp.Year,
		Month:  mp.Month,
	}
	if t := strings.TrimSpace(r.URL.Query().Get("type")); t != "" {
		txType := core.TxType(t)
		params.Type = &txType
	}
	if d := strings.TrimSpace(r.URL.Query().Get("date")); d != "" {
		date, err := core.ParseDate(d)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		params.Date = &date
	}

	txs, err := s.ledger.ListTransactions(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uid := userID(r)

	// The stored date is needed so an edit that moves a transaction to
	// another month invalidates both calendar views.
	before, err := s.ledger.GetTransaction(r.Context(), uid, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	params := storage.UpdateTransactionParams{ID: id, UserID: uid}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		params.Amount = &core.Money{Cents: cents}
	}
	if req.CategoryID != nil {
		params.CategoryID = req.CategoryID
	}
	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		params.Date = &date
	}
	if req.Memo != nil {
		memo := strings.TrimSpace(*req.Memo)
		params.Memo = &memo
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateCalendar(uid, before.Date.Year(), int(before.Date.Month()))
	s.invalidateCalendar(uid, updated.Date.Year(), int(updated.Date.Month()))
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uid := userID(r)
	tx, err := s.ledger.GetTransaction(r.Context(), uid, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), uid, id); err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateCalendar(uid, tx.Date.Year(), int(tx.Date.Month()))
	w.WriteHeader(http.StatusNoContent)
}
