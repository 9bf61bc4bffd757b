// Package extension merges extension-contributed defaults into a
// descriptor.
//
// An extension is a named bundle of descriptor defaults (config options,
// endpoints, parts, container and resource metadata) for a known
// application framework. Extensions are registered in a closed registry
// keyed by name; expansion looks up each name in the descriptor's
// extensions list and merges the contributed fragments with user-declared
// keys taking precedence. Expansion is idempotent: it is keyed off the
// extensions list alone, so expanding an already-expanded descriptor
// produces the same result.
//
// Experimental extensions are rejected (and hidden from listings) unless
// the CRATE_EXPERIMENTAL environment variable enables them.
package extension
