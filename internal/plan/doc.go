// Package plan turns the platforms of an expanded descriptor into a
// concrete build plan.
//
// Resolution normalizes every platform (including the shorthand and
// multi-base notations) into its canonical build-on set and single
// build-for value, resolves build-time and runtime bases, and emits one
// [Entry] per (platform, build-on) pair in declaration order, with
// identical tuples deduplicated. The unfiltered plan is the canonical
// record of what the descriptor requested; host filtering then selects
// the entries the current machine can execute.
//
// Example usage:
//
//	entries, err := plan.Resolve(desc, plan.HostArch())
//	if err != nil {
//	    return err
//	}
//	entries, err = plan.Filter(entries, plan.HostArch(), nil)
package plan
