package parts

import (
	"net/url"
	"sort"

	"github.com/crateforge/crate/internal/descriptor"
)

// Returns a filesystem-safe form of a part name.
//
// Slash-qualified names ("web-service/app") must not introduce path
// separators, and the escaping must be injective so distinct names never
// share a state record or work directory.
func escapePart(name string) string {
	return url.PathEscape(name)
}

// The runtime model of one part, compiled from its descriptor entry.
type Part struct {
	Name          string
	Plugin        string
	Source        string         // Source location, relative to the project root.
	After         []string       // Parts that must stage before this one builds.
	OverrideBuild string         // Shell script replacing the plugin's build step.
	StageFilters  []string       // Filters applied when staging build output.
	PrimeFilters  []string       // Filters applied when priming staged output.
	Options       map[string]any // Plugin-specific configuration.
}

// Lifecycle states of a part.
type Status int32

const (
	StatusPending Status = iota
	StatusPulled
	StatusBuilt
	StatusStaged
	StatusPrimed
	StatusFailed
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPulled:
		return "pulled"
	case StatusBuilt:
		return "built"
	case StatusStaged:
		return "staged"
	case StatusPrimed:
		return "primed"
	case StatusFailed:
		return "failed"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Lifecycle stage names used in state records and diagnostics.
const (
	stagePull  = "pull"
	stageBuild = "build"
	stageStage = "stage"
	stagePrime = "prime"
)

// Compiles descriptor parts into runtime parts, sorted by name for a
// stable declaration order independent of map iteration.
func compile(d *descriptor.Descriptor) ([]*Part, error) {
	names := make([]string, 0, len(d.Parts))
	for name := range d.Parts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Part, 0, len(names))
	for _, name := range names {
		spec := d.Parts[name]
		if _, err := lookupPlugin(spec.Plugin); err != nil {
			return nil, err
		}
		out = append(out, &Part{
			Name:          name,
			Plugin:        spec.Plugin,
			Source:        spec.Source,
			After:         spec.After,
			OverrideBuild: spec.OverrideBuild,
			StageFilters:  spec.Stage,
			PrimeFilters:  spec.Prime,
			Options:       spec.Options,
		})
	}

	return out, nil
}
