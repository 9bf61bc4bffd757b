package plan

import (
	"fmt"
	goruntime "runtime"
	"slices"

	"github.com/crateforge/crate/internal/descriptor"
)

// One concrete build the pipeline will execute.
type Entry struct {
	Platform  string          // Name of the originating platform declaration.
	BuildOn   string          // Architecture the build runs on.
	BuildBase descriptor.Base // Base of the build environment.
	BuildFor  string          // Architecture the artifact targets, or "all".
	RunBase   descriptor.Base // Base the artifact runs on.
}

// Formats the entry as "platform (build-on -> build-for on base)".
func (e Entry) String() string {
	return fmt.Sprintf("%s (%s -> %s on %s)", e.Platform, e.BuildOn, e.BuildFor, e.BuildBase)
}

// The tuple identity used for deduplication: two platforms producing the
// same tuple are one build.
func (e Entry) key() [4]string {
	return [4]string{e.BuildOn, e.BuildBase.String(), e.BuildFor, e.RunBase.String()}
}

// Returns the architecture of the running host in descriptor notation.
func HostArch() string {
	switch goruntime.GOARCH {
	case "arm":
		return "armhf"
	default:
		return goruntime.GOARCH
	}
}

// Computes the unfiltered build plan for an expanded descriptor.
//
// Entries are emitted in platform declaration order, then build-on
// declaration order. Identical tuples arising from different platform
// names are deduplicated, keeping the first. The descriptor must already
// have passed validation.
func Resolve(d *descriptor.Descriptor, hostArch string) ([]Entry, error) {
	platforms := d.Platforms
	if len(platforms) == 0 {
		// Legacy descriptor: base/build-base only. Synthesize a single
		// platform for the host's native architecture.
		if !descriptor.ValidArch(hostArch) {
			return nil, fmt.Errorf("%w: host architecture %q is not a supported build architecture", ErrResolution, hostArch)
		}
		platforms = descriptor.Platforms{{Name: hostArch}}
	}

	var entries []Entry
	seen := map[[4]string]bool{}

	for _, pl := range platforms {
		resolved, err := resolvePlatform(d, pl)
		if err != nil {
			return nil, err
		}
		for _, e := range resolved {
			if seen[e.key()] {
				continue
			}
			seen[e.key()] = true
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// Resolves a single platform declaration into its entries.
func resolvePlatform(d *descriptor.Descriptor, pl descriptor.Platform) ([]Entry, error) {
	buildOn, buildFor, inlineBase, err := normalize(pl)
	if err != nil {
		return nil, err
	}

	runBase, buildBase, err := resolveBases(d, inlineBase)
	if err != nil {
		return nil, fmt.Errorf("platform %q: %w", pl.Name, err)
	}

	// Architecture-independent artifact: one entry regardless of build-on
	// cardinality. Prefer a build-on matching the host so that filtering
	// keeps the entry whenever the host can build it at all.
	if buildFor == descriptor.ArchAll {
		on := buildOn[0]
		if i := slices.Index(buildOn, HostArch()); i >= 0 {
			on = buildOn[i]
		}
		return []Entry{{
			Platform:  pl.Name,
			BuildOn:   on,
			BuildBase: buildBase,
			BuildFor:  descriptor.ArchAll,
			RunBase:   runBase,
		}}, nil
	}

	entries := make([]Entry, 0, len(buildOn))
	for _, on := range buildOn {
		entries = append(entries, Entry{
			Platform:  pl.Name,
			BuildOn:   on,
			BuildBase: buildBase,
			BuildFor:  buildFor,
			RunBase:   runBase,
		})
	}
	return entries, nil
}

// Normalizes a platform into canonical build-on architectures, the single
// build-for value, and the inline base if the tokens carry one.
//
// Shorthand platforms ("amd64:" or "ubuntu@24.04:amd64:") expand to
// build-on = build-for = the named architecture.
func normalize(pl descriptor.Platform) (buildOn []string, buildFor string, base descriptor.Base, err error) {
	if len(pl.BuildOn) == 0 && len(pl.BuildFor) == 0 {
		b, arch, err := descriptor.ParseToken(pl.Name)
		if err != nil {
			return nil, "", descriptor.Base{}, fmt.Errorf("platform %q: %w", pl.Name, err)
		}
		return []string{arch}, arch, b, nil
	}

	for _, token := range pl.BuildOn {
		b, arch, err := descriptor.ParseToken(token)
		if err != nil {
			return nil, "", descriptor.Base{}, fmt.Errorf("platform %q: %w", pl.Name, err)
		}
		if !b.IsZero() {
			base = b
		}
		if !slices.Contains(buildOn, arch) {
			buildOn = append(buildOn, arch)
		}
	}

	switch len(pl.BuildFor) {
	case 0:
		// build-for defaults to build-on when it is unambiguous.
		if len(buildOn) != 1 {
			return nil, "", descriptor.Base{}, fmt.Errorf("%w: platform %q: build-for is required with multiple build-on values", ErrResolution, pl.Name)
		}
		buildFor = buildOn[0]
	case 1:
		token := pl.BuildFor[0]
		if token == descriptor.ArchAll {
			buildFor = descriptor.ArchAll
			break
		}
		b, arch, err := descriptor.ParseToken(token)
		if err != nil {
			return nil, "", descriptor.Base{}, fmt.Errorf("platform %q: %w", pl.Name, err)
		}
		if !b.IsZero() {
			base = b
		}
		buildFor = arch
	default:
		return nil, "", descriptor.Base{}, fmt.Errorf("%w: platform %q: build-for must name exactly one target, got %v", ErrResolution, pl.Name, pl.BuildFor)
	}

	return buildOn, buildFor, base, nil
}

// Resolves the runtime and build-time bases for one platform.
//
// Multi-base platforms use their inline base for both. Single-base
// descriptors use the descriptor-level base as the runtime base and
// build-base (defaulting to base, with "devel" resolved to the newest
// in-development series) as the build-time base.
func resolveBases(d *descriptor.Descriptor, inline descriptor.Base) (run, build descriptor.Base, err error) {
	if !inline.IsZero() {
		resolved, err := inline.Resolve()
		if err != nil {
			return descriptor.Base{}, descriptor.Base{}, err
		}
		return resolved, resolved, nil
	}

	run, err = descriptor.ParseBase(d.Base)
	if err != nil {
		return descriptor.Base{}, descriptor.Base{}, err
	}

	build = run
	if d.BuildBase != "" {
		if build, err = descriptor.ParseBase(d.BuildBase); err != nil {
			return descriptor.Base{}, descriptor.Base{}, err
		}
	}
	if build, err = build.Resolve(); err != nil {
		return descriptor.Base{}, descriptor.Base{}, err
	}

	return run, build, nil
}
