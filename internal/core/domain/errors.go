package domain

import "errors"

var (
	// Authentication failures. These are the only errors that terminate
	// a connection, and they do so before anything is registered.
	ErrNoToken          = errors.New("no credential token provided")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrUnknownPrincipal = errors.New("unknown principal")

	ErrUnauthorized  = errors.New("action not permitted for role")
	ErrNotFound      = errors.New("not found")
	ErrStaleState    = errors.New("state changed before operation completed")
	ErrAlreadyPaired = errors.New("connection already paired")
	ErrNotPaired     = errors.New("connections are not paired")
	ErrSessionActive = errors.New("an active streaming session already exists for experiment")
)

// ErrorCode maps an error to its wire code, reported back to the
// originating connection as an error event.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return "NO_TOKEN"
	case errors.Is(err, ErrInvalidToken):
		return "INVALID_TOKEN"
	case errors.Is(err, ErrExpiredToken):
		return "EXPIRED_TOKEN"
	case errors.Is(err, ErrUnknownPrincipal):
		return "UNKNOWN_PRINCIPAL"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrStaleState):
		return "STALE_STATE"
	case errors.Is(err, ErrAlreadyPaired):
		return "ALREADY_PAIRED"
	case errors.Is(err, ErrNotPaired):
		return "NOT_PAIRED"
	case errors.Is(err, ErrSessionActive):
		return "ALREADY_ACTIVE"
	}
	return "INTERNAL"
}
