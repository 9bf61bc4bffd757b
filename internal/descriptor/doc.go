// Package descriptor defines the project descriptor model and its loader.
//
// A descriptor is the crate.yaml file at the root of a project. It names
// the artifact, declares the target platforms and bases, and lists the
// parts that make up the build pipeline. The loader decodes the YAML,
// normalizes shorthand platform notation, and validates the structural
// invariants (base exclusivity, platform token syntax, build-for
// cardinality) before any other subsystem sees the descriptor.
//
// Example usage:
//
//	desc, err := descriptor.Load("crate.yaml")
//	if err != nil {
//	    return err
//	}
package descriptor
