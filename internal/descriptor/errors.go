package descriptor

import "errors"

var (
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	ErrInvalidPlatform   = errors.New("invalid platform")
	ErrInvalidBase       = errors.New("invalid base")
	ErrConflictingBases  = errors.New("conflicting base declarations")
	ErrMissingBase       = errors.New("no base declared")
)
