package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrInternal
	ErrRateLimited
	ErrDispatchFailed
	ErrCodeExpired
	ErrAttemptsExceeded
	ErrNoPassword
	ErrAlreadyRegistered
	ErrProfileIncomplete
	ErrProviderUnavailable
	ErrUnknownProvider
)
