package provision

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/crateforge/crate/internal/plan"
)

// Default containerd socket address.
const DefaultContainerdAddress = "/run/containerd/containerd.sock"

// Default containerd namespace for images and containers.
const DefaultContainerdNamespace = "crate"

// An isolated execution environment for one build-plan entry.
//
// The project and work directories are visible inside the environment at
// their host paths, so lifecycle output lands directly in the per-entry
// work tree.
type Environment interface {

	// Setup makes the environment ready to execute commands.
	Setup(ctx context.Context) error

	// Run executes a shell script in the given working directory and
	// returns its combined output. Satisfies the parts engine's runner
	// contract.
	Run(ctx context.Context, script, workdir string, env []string) (string, error)

	// Teardown destroys the environment and its resources.
	Teardown(ctx context.Context) error
}

// Controls environment creation for one entry.
type Options struct {
	Entry       plan.Entry // Build-plan entry the environment serves.
	ProjectDir  string     // Project root, mounted into the environment.
	WorkDir     string     // Per-entry work tree, mounted into the environment.
	CacheDir    string     // Host-shared build cache.
	Destructive bool       // Run directly on the host instead of a container.

	ContainerdAddress   string // Containerd socket. Empty uses [DefaultContainerdAddress].
	ContainerdNamespace string // Containerd namespace. Empty uses [DefaultContainerdNamespace].
}

// Provisions and tears down the environment for one build-plan entry.
type Provisioner struct {
	opts  Options
	cache *Cache
	env   Environment
}

// Creates a provisioner for one entry. Nothing is acquired until
// [Provisioner.Setup].
func New(opts Options) *Provisioner {
	if opts.ContainerdAddress == "" {
		opts.ContainerdAddress = DefaultContainerdAddress
	}
	if opts.ContainerdNamespace == "" {
		opts.ContainerdNamespace = DefaultContainerdNamespace
	}
	return &Provisioner{opts: opts}
}

// Acquires the shared cache and brings up the entry's environment.
//
// The cache lock is waited on for a bounded interval; when contended the
// build proceeds with a private per-entry cache instead of blocking. A
// provisioning failure releases everything already acquired.
func (p *Provisioner) Setup(ctx context.Context) (Environment, error) {
	fallback := filepath.Join(p.opts.WorkDir, "cache")
	p.cache = AcquireCache(ctx, p.opts.CacheDir, fallback)

	if p.opts.Destructive {
		p.env = NewHostEnvironment(p.opts.Entry)
	} else {
		rt, err := NewRuntime(p.opts.ContainerdAddress, p.opts.ContainerdNamespace)
		if err != nil {
			p.cache.Release()
			return nil, fmt.Errorf("%w: %v", ErrProvision, err)
		}
		p.env = NewContainerEnvironment(rt, p.opts.Entry, ContainerConfig{
			ID:     containerID(p.opts.Entry),
			Mounts: []string{p.opts.ProjectDir, p.opts.WorkDir, p.cache.Dir()},
		})
	}

	if err := p.env.Setup(ctx); err != nil {
		p.cache.Release()
		return nil, fmt.Errorf("%w: entry %s: %v", ErrProvision, p.opts.Entry, err)
	}

	slog.Debug("environment ready", "entry", p.opts.Entry.String(), "cache", p.cache.Dir(), "degraded", p.cache.Degraded())
	return p.env, nil
}

// Returns the cache directory the entry should use. Valid after Setup.
func (p *Provisioner) CacheDir() string {
	if p.cache == nil {
		return ""
	}
	return p.cache.Dir()
}

// Destroys the environment and releases the cache lock.
//
// Runs on every exit path, including cancellation: the cache lock must
// never outlive the entry's build.
func (p *Provisioner) Teardown(ctx context.Context) error {
	var err error
	if p.env != nil {
		err = p.env.Teardown(ctx)
	}
	if p.cache != nil {
		p.cache.Release()
	}
	return err
}

// Returns a container identifier unique to the entry.
func containerID(e plan.Entry) string {
	return fmt.Sprintf("crate-%s-%s-%s", e.Platform, e.BuildOn, e.BuildBase.Slug())
}
