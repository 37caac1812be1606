package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/listing"
	"github.com/goliatone/go-jastip/internal/pagination"
)

// envelope is the body of every successful response.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorEnvelope is the body of every failed response. Error carries the
// go-errors payload with category, text code and field errors.
type errorEnvelope struct {
	Success   string        `json:"success"`
	Message   string        `json:"message"`
	RequestID string        `json:"request_id,omitempty"`
	Error     *errors.Error `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Message: message, Data: data})
}

// writeError renders err with the status of its category. Stack traces are
// only included in development.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := domain.Normalize(err).Clone()
	id := RequestID(r.Context())
	e.WithRequestID(id)

	level := slog.LevelWarn
	if e.Code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	a.logger.Log(r.Context(), level, "request failed",
		"request_id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", e.Code,
		"category", e.Category.String(),
		"error", err,
	)

	var stack errors.StackTrace
	if a.development {
		stack = errors.CaptureStackTrace(1)
	}
	resp := e.ToErrorResponse(a.development, stack)

	writeJSON(w, e.Code, errorEnvelope{
		Success:   "error",
		Message:   e.Message,
		RequestID: id,
		Error:     resp.Error,
	})
}

func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return domain.Validation("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validation("invalid request body: " + err.Error())
	}
	return nil
}

// pageRequest reads limit and cursor from the query string.
func pageRequest(r *http.Request) (pagination.Request, error) {
	var req pagination.Request
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, domain.Validation("invalid limit", errors.FieldError{Field: "limit", Message: "must be an integer", Value: v})
		}
		req.Limit = n
	}
	if v := q.Get("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, domain.Validation("invalid cursor", errors.FieldError{Field: "cursor", Message: "must be an integer", Value: v})
		}
		req.Cursor = n
	}
	return req, nil
}

func filterRequest(r *http.Request) (listing.Filter, error) {
	req, err := pageRequest(r)
	if err != nil {
		return listing.Filter{}, err
	}
	return listing.Filter{
		Keyword: r.URL.Query().Get("keyword"),
		Limit:   req.Limit,
		Cursor:  req.Cursor,
	}, nil
}

// pageBody lays a page out with its items under key, e.g.
// {"resi": [...], "next_cursor": 3, ...}.
func pageBody[T any](key string, p pagination.Page[T]) map[string]any {
	return map[string]any{
		key:             p.Items,
		"next_cursor":   p.NextCursor,
		"total_pages":   p.TotalPages,
		"max_cursor":    p.MaxCursor,
		"has_next_page": p.HasNextPage,
	}
}
