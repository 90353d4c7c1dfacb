package common

import "errors"

// Sentinel errors shared by repositories, services and the transport layer.
// Callers should use errors.Is to match these values.
var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Startup and input errors.
	ErrConfig     = errors.New("configuration error")
	ErrValidation = errors.New("validation error")

	// Account lifecycle errors.
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrAccountDisabled  = errors.New("account disabled")
	ErrAccountDestroyed = errors.New("account deleted: too many failed attempts, all stored data was removed")

	// Quota and entitlement errors.
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrFileTooLarge  = errors.New("file too large")
	ErrFrozen        = errors.New("record is frozen (read only) because it exceeds the current plan")

	// Data integrity errors.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
