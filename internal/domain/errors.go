package domain

import "errors"

var (
	// ErrValidation is wrapped by every Validate method in this package.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat marks input files whose layout cannot be parsed.
	ErrInvalidFormat = errors.New("invalid format")

	ErrEmptyID       = errors.New("object ID cannot be empty")
	ErrNoPhotometry  = errors.New("light curve has no photometry")
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrUnknownSurvey is returned for names other than SNPCC and PLAsTiCC.
	ErrUnknownSurvey = errors.New("unknown survey")

	// ErrNotFound is returned when an object ID is not present in a table.
	ErrNotFound = errors.New("object not found")
)
