package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal")

	// Verification code lifecycle.
	ErrRateLimited      = errors.New("too many codes issued")
	ErrDispatchFailed   = errors.New("code dispatch failed")
	ErrCodeExpired      = errors.New("verification code expired")
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")

	// Account resolution.
	ErrNoPassword        = errors.New("account has no password")
	ErrAlreadyRegistered = errors.New("email already registered")
	ErrProfileIncomplete = errors.New("provider profile incomplete")

	// External identity providers.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrUnknownProvider     = errors.New("unknown identity provider")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
