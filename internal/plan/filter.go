package plan

import (
	"fmt"
	"slices"
	"strings"
)

// Environment variable selecting platforms, equivalent to the CLI
// override.
const PlatformEnv = "CRATE_PLATFORM"

// Selects the entries the current host should build.
//
// With an explicit override, entries whose platform name or build-for
// architecture matches any override value are kept and host capability is
// not consulted. Without one, entries whose build-on architecture differs
// from the host are dropped. Filtering an already-filtered plan with the
// same arguments yields the same plan.
//
// An empty result is an error naming the host architecture and the
// requested build-on set.
func Filter(entries []Entry, hostArch string, override []string) ([]Entry, error) {
	var kept []Entry

	for _, e := range entries {
		if len(override) > 0 {
			if slices.Contains(override, e.Platform) || slices.Contains(override, e.BuildFor) {
				kept = append(kept, e)
			}
			continue
		}
		if e.BuildOn == hostArch {
			kept = append(kept, e)
		}
	}

	if len(kept) == 0 {
		if len(override) > 0 {
			return nil, fmt.Errorf("%w: no entry matches the requested platforms %v", ErrEmptyPlan, override)
		}
		return nil, fmt.Errorf("%w: host architecture %s cannot build for any of [%s]", ErrEmptyPlan, hostArch, buildOnSet(entries))
	}

	return kept, nil
}

// Formats the distinct build-on architectures of a plan for diagnostics.
func buildOnSet(entries []Entry) string {
	var archs []string
	for _, e := range entries {
		if !slices.Contains(archs, e.BuildOn) {
			archs = append(archs, e.BuildOn)
		}
	}
	return strings.Join(archs, ", ")
}
