package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dscnitrourkela/project-zucchini/internal/api/respond"
	"github.com/dscnitrourkela/project-zucchini/internal/auth"
)

// decodeJSON reads one JSON document from the body. Oversized bodies keep
// their *http.MaxBytesError so they answer 413.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return respond.BadRequest("Request body is required", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return respond.BadRequest("Request body is required", err)
		}
		return respond.BadRequest("Invalid JSON body", err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON that treats an empty body as {}.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := decodeJSON(r, v)
	var httpErr *respond.HTTPError
	if errors.As(err, &httpErr) && errors.Is(httpErr.Err, io.EOF) {
		return nil
	}
	return err
}

func identity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, respond.ErrUnauthorized
	}
	return id, nil
}

// queryInt parses a positive integer query parameter, returning 0 when it
// is absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &respond.HTTPError{
			Status:  http.StatusBadRequest,
			Message: "Invalid query parameter",
			Details: map[string]string{name: "must be a positive integer"},
			Err:     err,
		}
	}
	return n, nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
