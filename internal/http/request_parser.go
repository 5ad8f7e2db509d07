package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"estimator/internal/core"
	"estimator/internal/gateway"
)

// maxBodyBytes caps request bodies; a full estimation tree fits easily.
const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &gateway.Error{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large", Err: err}
		case errors.Is(err, io.EOF):
			return &gateway.Error{Status: http.StatusBadRequest, Message: "Request body is required", Err: err}
		default:
			return &gateway.Error{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err}
		}
	}
	return nil
}

type validator interface {
	Validate() error
}

// decodeValid decodes the body into dst and validates it, writing the error
// response itself. It reports whether the handler should continue.
func decodeValid[T validator](w http.ResponseWriter, r *http.Request, dst *T) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, r, err)
		return false
	}
	if err := (*dst).Validate(); err != nil {
		writeError(w, r, invalid(err))
		return false
	}
	return true
}

// invalid turns a domain validation failure into a 400.
func invalid(err error) error {
	return &gateway.Error{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
}

// parseEstimationQuery reads the list filters and paging of GET /estimations.
// Missing values fall back to the defaults; malformed ones are rejected.
func parseEstimationQuery(v url.Values) (core.EstimationQuery, error) {
	var q core.EstimationQuery
	q.Search = strings.TrimSpace(v.Get("search"))
	q.Status = strings.TrimSpace(v.Get("status"))

	var err error
	if q.StartDate, err = parseDateParam(v, "startDate"); err != nil {
		return q, err
	}
	if q.EndDate, err = parseDateParam(v, "endDate"); err != nil {
		return q, err
	}
	if q.Page, err = parseIntParam(v, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = parseIntParam(v, "limit"); err != nil {
		return q, err
	}
	return q.Normalize(), nil
}

func parseDateParam(v url.Values, key string) (core.Date, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, &gateway.Error{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("%s must be a date in YYYY-MM-DD format", key),
			Err:     err,
		}
	}
	return d, nil
}

func parseIntParam(v url.Values, key string) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &gateway.Error{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("%s must be a positive integer", key),
			Err:     err,
		}
	}
	return n, nil
}
