package domain

import "errors"

var (
	// ErrInvalidInput covers malformed birthdates, non-positive radii and
	// out-of-range coordinates. Reported to the immediate caller, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataUnavailable means the catalog failed to load or holds no records.
	ErrDataUnavailable = errors.New("daycare data unavailable")
)
