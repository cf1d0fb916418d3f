package services

import (
	"errors"
	"net/http"

	"github.com/sentinel-authz/sentinel/internal/datastore"
	"github.com/sentinel-authz/sentinel/pkg/zookie"
)

// ValidationError covers malformed request bodies, invalid read filters,
// and malformed/stale/out-of-range zookies (spec.md §7, HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(msg string) error { return &ValidationError{Message: msg} }

// rewriteError maps a handler error to an HTTP status, per the taxonomy of
// spec.md §7: validation/serialization (including zookie validation),
// failed preconditions, and writes against a read-only datastore -> 400;
// database -> 500; everything else falls back to 500.
func rewriteError(err error) (status int, message string) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	var zookieErr *zookie.ValidationError
	if errors.As(err, &zookieErr) {
		return http.StatusBadRequest, zookieErr.Error()
	}

	var dbErr *datastore.DatabaseError
	if errors.As(err, &dbErr) {
		return http.StatusInternalServerError, "internal error"
	}

	var preconditionErr *datastore.PreconditionFailedError
	if errors.As(err, &preconditionErr) {
		return http.StatusBadRequest, preconditionErr.Error()
	}

	if errors.Is(err, datastore.ErrReadOnly) {
		return http.StatusBadRequest, err.Error()
	}

	return http.StatusInternalServerError, "internal error"
}
