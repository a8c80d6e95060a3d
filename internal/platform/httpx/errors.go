// Package httpx provides JSON response helpers and the RFC 7807
// problem-detail error mapping shared by all handlers.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinels handlers wrap or translate domain errors into before
// calling RespondError.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflicting state")
)

type problemClass struct {
	status int
	title  string
}

var problemClasses = []struct {
	sentinel error
	class    problemClass
}{
	{ErrNotFound, problemClass{http.StatusNotFound, "Not Found"}},
	{ErrDuplicate, problemClass{http.StatusConflict, "Duplicate"}},
	{ErrConflict, problemClass{http.StatusConflict, "Conflict"}},
	{ErrValidation, problemClass{http.StatusBadRequest, "Validation Failed"}},
	{ErrForbidden, problemClass{http.StatusForbidden, "Forbidden"}},
	{ErrUnauthorized, problemClass{http.StatusUnauthorized, "Unauthorized"}},
}

// RespondError writes the problem response for err. Errors that match
// no sentinel become an opaque 500 so internal detail never leaks.
func RespondError(w http.ResponseWriter, err error) {
	for _, pc := range problemClasses {
		if errors.Is(err, pc.sentinel) {
			Problem(w, pc.class.status, pc.class.title, err.Error())
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
