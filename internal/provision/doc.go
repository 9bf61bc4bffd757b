// Package provision creates isolated build environments for build-plan
// entries.
//
// One provisioner exists per entry. It acquires the host-shared build
// cache (degrading to a private cache when the lock is contended),
// creates an execution environment matching the entry's build base and
// architecture, and tears both down when the build finishes. Entries
// share no other mutable state.
//
// Two environment kinds exist: a containerd-backed container with the
// project and work directories bind-mounted at their host paths, and a
// destructive host environment that runs commands directly with no
// isolation.
//
// Example usage:
//
//	prov := provision.New(provision.Options{Entry: entry, ProjectDir: root, WorkDir: work})
//	env, err := prov.Setup(ctx)
//	if err != nil {
//	    return err
//	}
//	defer prov.Teardown(ctx)
package provision
