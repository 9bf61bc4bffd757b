package plan

import "errors"

var (
	ErrResolution = errors.New("build plan resolution failed")
	ErrEmptyPlan  = errors.New("empty build plan")
)
