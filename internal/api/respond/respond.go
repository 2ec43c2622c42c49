// Package respond writes the JSON envelope shared by every API route:
// {"success":true,"data":...} or {"success":false,"error":...,"details":...}.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
)

const contentType = "application/json"

type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
	// IsVerified is only set on the admin "Already registered" failure.
	IsVerified *bool `json:"isVerified,omitempty"`
}

var (
	ErrUnauthorized = apperr.New(apperr.KindUnauthorized, "Unauthorized")
	ErrForbidden    = apperr.New(apperr.KindForbidden, "Forbidden")
)

// HTTPError pins an error to a status and public message.
type HTTPError struct {
	Status  int
	Message string
	Details any
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

// BadRequest wraps err as a 400 with message as the public text.
func BadRequest(message string, err error) error {
	return &HTTPError{Status: http.StatusBadRequest, Message: message, Err: err}
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Success writes data with a human readable message alongside it.
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// Error classifies err and writes the failure envelope. Unclassified errors
// keep their message hidden outside development and test.
func Error(w http.ResponseWriter, r *http.Request, err error, env string) {
	c := classify(err)

	if c.internal && env != "development" && env != "test" {
		c.body.Error = http.StatusText(c.status)
	}

	logger := zerolog.Ctx(r.Context())
	switch {
	case c.status >= 500:
		logger.Error().
			Err(err).
			Int("status", c.status).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg("request failed")
	case c.status >= 400:
		logger.Warn().
			Err(err).
			Int("status", c.status).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(c.body.Error)
	}

	JSON(w, c.status, c.body)
}

// Fail writes a failure envelope with an explicit status and message.
func Fail(w http.ResponseWriter, r *http.Request, status int, message string, err error, env string) {
	Error(w, r, &HTTPError{Status: status, Message: message, Err: err}, env)
}

type classified struct {
	status int
	body   Envelope
	// internal marks errors nobody classified; their text is not public.
	internal bool
}

func fail(status int, message string, details any) classified {
	return classified{status: status, body: Envelope{Success: false, Error: message, Details: details}}
}

// verifiedReporter is implemented by the admin "Already registered" error.
type verifiedReporter interface {
	AdminVerified() bool
}

func classify(err error) classified {
	var (
		httpErr       *HTTPError
		public        apperr.Public
		maxBytesError *http.MaxBytesError
	)

	switch {
	case errors.As(err, &httpErr):
		return fail(httpErr.Status, httpErr.Message, httpErr.Details)
	case errors.As(err, &maxBytesError):
		return fail(http.StatusRequestEntityTooLarge, "Request body too large", nil)
	case errors.As(err, &public):
		var details any
		if d, ok := public.(apperr.Detailed); ok {
			details = d.PublicDetails()
		}
		c := fail(StatusFor(public.Kind()), public.PublicMessage(), details)
		if v, ok := public.(verifiedReporter); ok {
			verified := v.AdminVerified()
			c.body.IsVerified = &verified
		}
		return c
	}

	c := fail(http.StatusInternalServerError, err.Error(), nil)
	c.internal = true
	return c
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes v with status. Marshal failures degrade to a bare 500 envelope.
func JSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		fallback := fmt.Sprintf(`{"success":false,"error":%q}`, http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
