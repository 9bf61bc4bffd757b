// Package pack assembles primed output trees into distributable
// artifacts.
//
// One artifact is produced per build-plan entry. The archive contains
// the entry's primed file tree plus three generated files at the
// archive root: manifest.yaml recording how and when the artifact was
// built, metadata.yaml carrying the descriptor's declarative metadata,
// and the dispatch entry-point script.
//
// Archives are reproducible: given an identical primed tree and
// identical metadata, packing twice produces byte-identical output.
// Entry ordering is fixed, header fields that vary between hosts are
// zeroed, and all timestamps come from the recorded build time rather
// than the filesystem.
//
// Example usage:
//
//	path, err := pack.Pack(pack.Options{
//	    Descriptor: desc,
//	    Entry:      entry,
//	    PrimeDir:   primeDir,
//	    OutputDir:  ".",
//	})
package pack
