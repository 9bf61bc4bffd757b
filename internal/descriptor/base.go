package descriptor

import (
	"fmt"
	"strings"
)

// The pseudo-channel that resolves to the newest in-development series.
const DevelChannel = "devel"

// An OS distribution and release series pair, e.g. "ubuntu@24.04".
//
// A base identifies either the runtime environment an artifact targets or
// the build-time environment its parts are processed in.
type Base struct {
	Name    string // Distribution name (e.g., "ubuntu").
	Channel string // Release series (e.g., "24.04").
}

// Release series known to this build, in ascending release order.
//
// The last entry flagged devel is what the "devel" channel resolves to.
var knownBases = []struct {
	base  Base
	devel bool
}{
	{Base{"ubuntu", "20.04"}, false},
	{Base{"ubuntu", "22.04"}, false},
	{Base{"ubuntu", "24.04"}, false},
	{Base{"ubuntu", "25.10"}, true},
}

// Parses a base token of the form "name@channel".
func ParseBase(s string) (Base, error) {
	name, channel, ok := strings.Cut(s, "@")
	if !ok || name == "" || channel == "" {
		return Base{}, fmt.Errorf("%w: %q (expected name@channel)", ErrInvalidBase, s)
	}
	return Base{Name: name, Channel: channel}, nil
}

// Formats the base as "name@channel".
func (b Base) String() string {
	return b.Name + "@" + b.Channel
}

// Reports whether the base is unset.
func (b Base) IsZero() bool {
	return b.Name == "" && b.Channel == ""
}

// Returns a filesystem-safe form of the base (e.g., "ubuntu-24.04").
func (b Base) Slug() string {
	return b.Name + "-" + b.Channel
}

// Reports whether the base names a known release series.
//
// The pseudo-base "<name>@devel" is valid when the distribution has an
// in-development series.
func (b Base) Known() bool {
	if b.Channel == DevelChannel {
		return !develBase(b.Name).IsZero()
	}
	for _, k := range knownBases {
		if k.base == b {
			return true
		}
	}
	return false
}

// Resolves the "devel" channel to the concrete in-development series.
//
// Bases with a concrete channel are returned unchanged.
func (b Base) Resolve() (Base, error) {
	if b.Channel != DevelChannel {
		return b, nil
	}
	d := develBase(b.Name)
	if d.IsZero() {
		return Base{}, fmt.Errorf("%w: no in-development series for %q", ErrInvalidBase, b.Name)
	}
	return d, nil
}

// Returns the newest in-development series for a distribution, or the zero
// base when there is none.
func develBase(name string) Base {
	var found Base
	for _, k := range knownBases {
		if k.devel && k.base.Name == name {
			found = k.base
		}
	}
	return found
}
