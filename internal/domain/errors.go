package domain

import "errors" // Sentinel errors

var (
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrBadCredentials  = errors.New("incorrect username or password")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidKind     = errors.New("kind must be income or expense")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")
	ErrEmptyDesc       = errors.New("empty description")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidPeriod   = errors.New("period must be formatted as YYYY-MM")
	ErrInvalidInstalls = errors.New("installment values must be positive")
)
