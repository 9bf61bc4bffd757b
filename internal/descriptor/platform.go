package descriptor

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel build-for value marking an architecture-independent artifact.
const ArchAll = "all"

// Architectures a platform token may name.
var validArchs = map[string]bool{
	"amd64":   true,
	"arm64":   true,
	"armhf":   true,
	"ppc64el": true,
	"riscv64": true,
	"s390x":   true,
}

// Reports whether s is a recognized build architecture.
func ValidArch(s string) bool {
	return validArchs[s]
}

// A named build target: where the build runs and what it produces for.
//
// BuildOn and BuildFor hold raw descriptor tokens, either "<arch>" or
// "<base>:<arch>". Shorthand forms (a bare platform name with no body) are
// represented by empty token lists and expanded during plan resolution.
type Platform struct {
	Name     string   // Platform name as declared in the descriptor.
	BuildOn  []string // Architectures (or base:arch tokens) the build may run on.
	BuildFor []string // Single target architecture, or the sentinel "all".
}

// An ordered list of platforms.
//
// Declaration order is preserved from the YAML document so that plan
// resolution and diagnostics are stable across runs.
type Platforms []Platform

// Decodes the platforms mapping while preserving declaration order.
//
// Each entry is either shorthand (a bare key with a null body) or a mapping
// with build-on and build-for lists. Scalar build-on/build-for values are
// accepted as single-element lists.
func (p *Platforms) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: platforms must be a mapping", ErrInvalidPlatform)
	}

	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		pl := Platform{Name: key.Value}

		switch {
		case val.Kind == yaml.ScalarNode && val.Tag == "!!null":
			// Shorthand: name carries the whole declaration.

		case val.Kind == yaml.MappingNode:
			var body struct {
				BuildOn  stringList `yaml:"build-on"`
				BuildFor stringList `yaml:"build-for"`
			}
			if err := val.Decode(&body); err != nil {
				return fmt.Errorf("%w: platform %q: %v", ErrInvalidPlatform, key.Value, err)
			}
			pl.BuildOn = body.BuildOn
			pl.BuildFor = body.BuildFor

		default:
			return fmt.Errorf("%w: platform %q: expected mapping or null", ErrInvalidPlatform, key.Value)
		}

		*p = append(*p, pl)
	}

	return nil
}

// A YAML value that may be a scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("expected string or list of strings")
	}
}

// Splits a platform token into its optional base and architecture.
//
// Tokens are "<arch>" or "<base>:<arch>", where a base is "name@channel".
func ParseToken(token string) (Base, string, error) {
	baseStr, arch, ok := strings.Cut(token, ":")
	if !ok {
		if !ValidArch(token) {
			return Base{}, "", fmt.Errorf("%w: unknown architecture %q", ErrInvalidPlatform, token)
		}
		return Base{}, token, nil
	}

	base, err := ParseBase(baseStr)
	if err != nil {
		return Base{}, "", fmt.Errorf("%w: token %q: %v", ErrInvalidPlatform, token, err)
	}
	if !ValidArch(arch) {
		return Base{}, "", fmt.Errorf("%w: token %q: unknown architecture %q", ErrInvalidPlatform, token, arch)
	}

	return base, arch, nil
}

// Validates one platform declaration.
//
// Checks token syntax, build-for cardinality (exactly one value, possibly
// the sentinel "all"), and that any inline bases agree across all tokens.
// Returns the platform's inline base, or the zero base for single-base
// descriptors.
func (pl Platform) validate() (Base, error) {
	tokens := make([]string, 0, len(pl.BuildOn)+len(pl.BuildFor)+1)

	if len(pl.BuildOn) == 0 && len(pl.BuildFor) == 0 {
		// Shorthand platform: the name is the only token.
		tokens = append(tokens, pl.Name)
	} else {
		if len(pl.BuildOn) == 0 {
			return Base{}, fmt.Errorf("%w: %q: build-on is required when build-for is set", ErrInvalidPlatform, pl.Name)
		}
		if len(pl.BuildFor) > 1 {
			return Base{}, fmt.Errorf("%w: %q: build-for must name exactly one target, got %v", ErrInvalidPlatform, pl.Name, pl.BuildFor)
		}
		tokens = append(tokens, pl.BuildOn...)
		tokens = append(tokens, pl.BuildFor...)
	}

	var base Base
	for _, token := range tokens {
		if token == ArchAll {
			continue
		}
		b, _, err := ParseToken(token)
		if err != nil {
			return Base{}, fmt.Errorf("platform %q: %w", pl.Name, err)
		}
		if b.IsZero() {
			continue
		}
		if base.IsZero() {
			base = b
		} else if base != b {
			return Base{}, fmt.Errorf("%w: %q: mixed bases %s and %s", ErrInvalidPlatform, pl.Name, base, b)
		}
	}

	if base.IsZero() {
		return Base{}, nil
	}
	if !base.Known() {
		return Base{}, fmt.Errorf("%w: %q: unknown base %s", ErrInvalidPlatform, pl.Name, base)
	}

	return base, nil
}
