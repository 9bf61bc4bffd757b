// Package parts executes the lifecycle of a descriptor's parts.
//
// Each part moves through pull, build, stage, and prime. Parts declaring
// an after-dependency wait until every named dependency has staged;
// independent parts run concurrently on a small worker pool. Plugins are
// selected by the part's plugin identifier from a registry and implement
// a uniform pull/build contract, so the engine never special-cases a
// plugin kind.
//
// Completed stages are recorded with a content digest of the part's
// declared inputs (source tree, plugin configuration, dependency
// outputs). A re-run whose digest matches the recorded one skips the
// part's pull, build, and stage entirely and reuses the staged files.
//
// Example usage:
//
//	engine, err := parts.New(desc, dirs, runner)
//	if err != nil {
//	    return err
//	}
//	result, err := engine.Run(ctx)
package parts
