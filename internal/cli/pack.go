package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/crateforge/crate/internal"
	"github.com/crateforge/crate/internal/descriptor"
	"github.com/crateforge/crate/internal/extension"
	"github.com/crateforge/crate/internal/pack"
	"github.com/crateforge/crate/internal/parts"
	"github.com/crateforge/crate/internal/paths"
	"github.com/crateforge/crate/internal/plan"
	"github.com/crateforge/crate/internal/provision"
)

// Maximum number of plan entries built concurrently. Entries are
// isolated by construction, so this only bounds resource usage.
const maxParallelEntries = 4

// Represents the 'crate pack' command.
type PackCmd struct {
	Project         string   `short:"p" help:"Project directory containing crate.yaml." default:"." type:"existingdir"`
	Output          string   `short:"o" help:"Directory artifacts are written into." default:"." type:"existingdir"`
	Platform        []string `help:"Build only the named platforms or build-for architectures." env:"CRATE_PLATFORM"`
	DestructiveMode bool     `help:"Build directly on the host instead of in an isolated container."`
}

// Outcome of one plan entry's build.
type entryResult struct {
	entry    plan.Entry
	artifact string
	err      error
}

// Executes the pack command.
//
// Validation and plan resolution run before any environment is
// provisioned; a failure there aborts the whole invocation. Build and
// provisioning failures are scoped to their entry, and the command
// reports a summary of which entries succeeded and which failed.
func (c *PackCmd) Run(ctx context.Context) error {
	project, err := filepath.Abs(c.Project)
	if err != nil {
		return err
	}
	output, err := filepath.Abs(c.Output)
	if err != nil {
		return err
	}

	desc, entries, err := c.resolve(project)
	if err != nil {
		return err
	}

	results := make([]entryResult, len(entries))

	g := new(errgroup.Group)
	g.SetLimit(maxParallelEntries)
	for i, entry := range entries {
		g.Go(func() error {
			artifact, err := c.packEntry(ctx, desc, entry, project, output)
			results[i] = entryResult{entry: entry, artifact: artifact, err: err}
			return nil
		})
	}
	g.Wait()

	return summarize(results)
}

// Loads, validates, expands, and resolves the project descriptor into
// the filtered build plan.
func (c *PackCmd) resolve(project string) (*descriptor.Descriptor, []plan.Entry, error) {
	desc, err := descriptor.Load(filepath.Join(project, descriptor.Filename))
	if err != nil {
		return nil, nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, nil, err
	}

	expanded, err := extension.Expand(desc)
	if err != nil {
		return nil, nil, err
	}
	if err := expanded.Validate(); err != nil {
		return nil, nil, err
	}

	host := plan.HostArch()
	full, err := plan.Resolve(expanded, host)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range full {
		slog.Debug("resolved plan entry", "entry", e.String())
	}

	filtered, err := plan.Filter(full, host, c.Platform)
	if err != nil {
		return nil, nil, err
	}

	return expanded, filtered, nil
}

// Builds and packages one plan entry.
func (c *PackCmd) packEntry(ctx context.Context, desc *descriptor.Descriptor, entry plan.Entry, project, output string) (string, error) {
	slog.Info("building", "entry", entry.String())

	work := filepath.Join(paths.Work(project), fmt.Sprintf("%s-on-%s", entry.Platform, entry.BuildOn))
	if err := os.MkdirAll(work, paths.DefaultDirMode); err != nil {
		return "", err
	}

	prov := provision.New(provision.Options{
		Entry:       entry,
		ProjectDir:  project,
		WorkDir:     work,
		CacheDir:    paths.Cache(),
		Destructive: c.DestructiveMode,
	})
	env, err := prov.Setup(ctx)
	if err != nil {
		return "", err
	}
	defer prov.Teardown(ctx)

	engine, err := parts.New(desc, parts.Dirs{
		Project: project,
		Work:    work,
		State:   paths.State(),
	}, env)
	if err != nil {
		return "", err
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return "", err
	}
	for _, part := range result.Skipped {
		slog.Debug("part unchanged, reused", "part", part, "entry", entry.String())
	}

	return pack.Pack(pack.Options{
		Descriptor: desc,
		Entry:      entry,
		PrimeDir:   result.PrimeDir,
		OutputDir:  output,
		Version:    internal.Version(),
	})
}

// Reports per-entry outcomes and returns an error when any entry failed.
func summarize(results []entryResult) error {
	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			slog.Error("entry failed", "entry", r.entry.String(), "error", r.err)
			continue
		}
		slog.Info("entry packed", "entry", r.entry.String(), "artifact", r.artifact)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d entries failed", failed, len(results))
	}
	return nil
}
