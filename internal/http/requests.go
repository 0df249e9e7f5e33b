package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxBodyBytes = 64 * 1024

var errBadBody = errors.New("invalid request body")

// decodeJSON reads a size-capped JSON body into dst, rejecting trailing
// garbage and unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadBody
	}
	if dec.More() {
		return errBadBody
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

// monthParams holds the reporting window from query parameters, defaulting
// to the current month.
type monthParams struct {
	Year  int
	Month int
}

func parseMonthParams(query url.Values) (monthParams, error) {
	now := time.Now()
	p := monthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid year")
		}
		p.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return p, fmt.Errorf("invalid month")
		}
		p.Month = m
	}
	return p, nil
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createTransactionRequest struct {
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	CategoryID int64  `json:"category_id"`
	Date       string `json:"date"`
	Memo       string `json:"memo"`
}

type updateTransactionRequest struct {
	Amount     *string `json:"amount"`
	CategoryID *int64  `json:"category_id"`
	Date       *string `json:"date"`
	Memo       *string `json:"memo"`
}

type createGoalRequest struct {
	Name     string  `json:"name"`
	Target   string  `json:"target"`
	Current  string  `json:"current"`
	Deadline *string `json:"deadline"`
}

type updateGoalRequest struct {
	Name          *string `json:"name"`
	Target        *string `json:"target"`
	Current       *string `json:"current"`
	Deadline      *string `json:"deadline"`
	ClearDeadline bool    `json:"clear_deadline"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}
