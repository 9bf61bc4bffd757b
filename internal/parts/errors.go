package parts

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlugin  = errors.New("unknown plugin")
	ErrCycle          = errors.New("parts dependency cycle")
	ErrStageCollision = errors.New("stage collision")
)

// Describes the failure of a single part at a specific lifecycle stage.
type PartError struct {
	Part   string // Name of the failing part.
	Stage  string // Lifecycle stage that failed (pull, build, stage, prime).
	Output string // Captured command output, if any.
	Err    error  // Underlying error.
}

func (e *PartError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("part %q failed during %s: %v\n%s", e.Part, e.Stage, e.Err, e.Output)
	}
	return fmt.Sprintf("part %q failed during %s: %v", e.Part, e.Stage, e.Err)
}

func (e *PartError) Unwrap() error {
	return e.Err
}
