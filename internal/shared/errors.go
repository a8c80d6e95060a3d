package shared

import "errors"

// Sentinels crossed between layers. Handlers translate these into the
// httpx problem responses; services wrap them with context via %w.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountRejected    = errors.New("account rejected")
	ErrDuplicateEmail     = errors.New("email already registered")
)

// CSRF verification outcomes surfaced by the session middleware.
var (
	ErrCSRFTokenMissing  = errors.New("csrf token missing")
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
