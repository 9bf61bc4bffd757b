package extension

import "errors"

var (
	ErrUnknownExtension      = errors.New("unknown extension")
	ErrExperimentalExtension = errors.New("experimental extension")
	ErrConflictingExtensions = errors.New("conflicting extensions")
)
