package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// Store and configuration errors
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrCorruptRecord    = errors.New("stored record is corrupt")
	ErrLimitsMissing    = errors.New("limits configuration missing")
	ErrInvalidIdentity  = errors.New("invalid identity")
)
