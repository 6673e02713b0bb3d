package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

const actorHeader = "X-Actor-ID"

// actorID extracts the calling user's id from the X-Actor-ID header.
func actorID(r *http.Request) (int64, bool) {
	raw := r.Header.Get(actorHeader)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// monthQuery parses optional year/month query parameters. Both must be
// present to scope a listing; neither present means no scoping.
func monthQuery(r *http.Request) (year int, month time.Month, scoped bool, err error) {
	rawYear := r.URL.Query().Get("year")
	rawMonth := r.URL.Query().Get("month")
	if rawYear == "" && rawMonth == "" {
		return 0, 0, false, nil
	}

	y, yearErr := strconv.Atoi(rawYear)
	m, monthErr := strconv.Atoi(rawMonth)
	if yearErr != nil || monthErr != nil || y < 1 || m < 1 || m > 12 {
		return 0, 0, false, errInvalidMonth
	}
	return y, time.Month(m), true, nil
}

var errInvalidMonth = errors.New("year and month must be valid integers")
