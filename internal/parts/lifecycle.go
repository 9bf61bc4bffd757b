package parts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/crateforge/crate/internal/descriptor"
	"github.com/crateforge/crate/internal/lockfile"
)

// Number of parts processed concurrently.
const workerCount = 4

// How long the engine waits for the state-directory lock before degrading
// to a stateless (full rebuild, no persist) run.
const stateLockWait = 5 * time.Second

// Directory layout one engine operates in.
//
// Everything except State is scoped to a single build-plan entry; State
// may be shared across builds on the host and is lock-guarded.
type Dirs struct {
	Project string // Project root, for resolving part sources.
	Work    string // Per-entry working area; parts, stage, and prime trees live here.
	State   string // Lifecycle state records.
}

func (d Dirs) partDir(part, sub string) string {
	return filepath.Join(d.Work, "parts", escapePart(part), sub)
}

func (d Dirs) stageDir() string { return filepath.Join(d.Work, "stage") }
func (d Dirs) primeDir() string { return filepath.Join(d.Work, "prime") }

// Executes the parts lifecycle of one resolved descriptor.
type Engine struct {
	dirs   Dirs
	runner Runner

	order []*Part          // Parts in declaration order.
	nodes map[string]*node // Execution graph.

	mu          sync.Mutex
	stageOwners map[string]string // Staged relative path -> owning part.
	failure     *PartError        // First failure, if any.

	stateless bool // State lock unavailable; skip persisted state entirely.
}

// Outcome of a successful lifecycle run.
type Result struct {
	PrimeDir string   // Final output tree.
	Skipped  []string // Parts whose recorded stages were reused unchanged.
}

// Creates an engine for an expanded, validated descriptor.
//
// The after-graph is built and checked for cycles up front, so Run never
// starts work on a cyclic descriptor.
func New(d *descriptor.Descriptor, dirs Dirs, runner Runner) (*Engine, error) {
	order, err := compile(d)
	if err != nil {
		return nil, err
	}

	nodes, err := buildGraph(order)
	if err != nil {
		return nil, err
	}

	return &Engine{
		dirs:        dirs,
		runner:      runner,
		order:       order,
		nodes:       nodes,
		stageOwners: map[string]string{},
	}, nil
}

// Returns the current lifecycle status of a part.
func (e *Engine) Status(part string) Status {
	n, ok := e.nodes[part]
	if !ok {
		return StatusPending
	}
	return n.currentStatus()
}

// Runs every part through pull, build, and stage in dependency order,
// then primes the union of staged output.
//
// Independent parts are processed concurrently; a part waits until all of
// its after-dependencies have staged. The first failure aborts the run:
// its dependents never start, already-staged parts are left in place for
// inspection, and the returned error is the [PartError] describing the
// failing part and stage.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if len(e.order) == 0 {
		return nil, errors.New("no parts to process")
	}

	stateLock := lockfile.New(filepath.Join(e.dirs.State, ".lock"))
	if err := os.MkdirAll(e.dirs.State, 0755); err != nil {
		return nil, err
	}
	if err := stateLock.AcquireWithin(ctx, stateLockWait); err != nil {
		if !errors.Is(err, lockfile.ErrLockHeld) {
			return nil, err
		}
		slog.Warn("lifecycle state is locked by another build, rebuilding without it")
		e.stateless = true
	}
	defer stateLock.Release()

	if err := e.executeGraph(ctx); err != nil {
		return nil, err
	}

	result, err := e.prime(ctx)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Runs the pull/build/stage stages over the graph with a worker pool.
func (e *Engine) executeGraph(ctx context.Context) error {
	ready := make(chan *node, len(e.order))
	var wg sync.WaitGroup
	wg.Add(len(e.order))

	for _, p := range e.order {
		n := e.nodes[p.Name]
		if n.remaining.Load() == 0 {
			ready <- n
		}
	}

	workers := workerCount
	if len(e.order) < workers {
		workers = len(e.order)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for range workers {
		go e.worker(runCtx, ready, cancel, &wg)
	}

	wg.Wait()
	close(ready)

	e.mu.Lock()
	failure := e.failure
	e.mu.Unlock()
	if failure != nil {
		return failure
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Processes ready nodes until the channel drains.
func (e *Engine) worker(ctx context.Context, ready chan *node, cancel context.CancelFunc, wg *sync.WaitGroup) {
	for n := range ready {
		if ctx.Err() != nil {
			// Never started: dependents can no longer become ready, so
			// their WaitGroup slots must be released here.
			e.skipDependents(n, wg)
			wg.Done()
			continue
		}

		if err := e.processPart(ctx, n); err != nil {
			n.setStatus(StatusFailed)
			e.recordFailure(err)
			cancel()
			e.skipDependents(n, wg)
			wg.Done()
			continue
		}

		for _, dep := range n.dependents {
			if dep.remaining.Add(-1) == 0 {
				ready <- dep
			}
		}
		wg.Done()
	}
}

// Records the first failure; later ones only add log noise.
func (e *Engine) recordFailure(err error) {
	var pe *PartError
	if !errors.As(err, &pe) {
		pe = &PartError{Part: "(unknown)", Stage: "(unknown)", Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failure == nil {
		e.failure = pe
	}
}

// Marks the transitive dependents of a failed part as never started.
//
// Skipped parts stay pending, per the failure contract: only the failing
// part reports failed.
func (e *Engine) skipDependents(n *node, wg *sync.WaitGroup) {
	for _, dep := range n.dependents {
		dep.skipOnce.Do(func() {
			slog.Debug("skipping dependent of failed part", "part", dep.part.Name, "failed", n.part.Name)
			wg.Done()
			e.skipDependents(dep, wg)
		})
	}
}

// Runs one part through pull, build, and stage, honoring recorded state.
func (e *Engine) processPart(ctx context.Context, n *node) error {
	p := n.part

	depDigests := make([]digest.Digest, 0, len(n.deps))
	depNames := append([]string(nil), p.After...)
	sort.Strings(depNames)
	for _, name := range depNames {
		depDigests = append(depDigests, e.nodes[name].digest)
	}

	fp, err := fingerprint(p, e.dirs.Project, depDigests)
	if err != nil {
		return &PartError{Part: p.Name, Stage: stagePull, Err: err}
	}
	n.digest = fp

	if e.tryReuse(n, fp) {
		slog.Debug("part is up to date", "part", p.Name)
		n.skipped = true
		n.setStatus(StatusStaged)
		return nil
	}

	plugin, err := lookupPlugin(p.Plugin)
	if err != nil {
		return &PartError{Part: p.Name, Stage: stagePull, Err: err}
	}

	pc := &Context{
		Part:       p,
		ProjectDir: e.dirs.Project,
		SourceDir:  e.dirs.partDir(p.Name, "src"),
		BuildDir:   e.dirs.partDir(p.Name, "build"),
		InstallDir: e.dirs.partDir(p.Name, "install"),
		Runner:     e.runner,
	}
	for _, dir := range []string{pc.SourceDir, pc.BuildDir, pc.InstallDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &PartError{Part: p.Name, Stage: stagePull, Err: err}
		}
	}

	slog.Info("pulling part", "part", p.Name)
	if err := plugin.Pull(ctx, pc); err != nil {
		return &PartError{Part: p.Name, Stage: stagePull, Err: err}
	}
	n.setStatus(StatusPulled)

	slog.Info("building part", "part", p.Name)
	if err := e.buildPart(ctx, plugin, pc); err != nil {
		return err
	}
	n.setStatus(StatusBuilt)

	slog.Info("staging part", "part", p.Name)
	files, err := e.stagePart(pc)
	if err != nil {
		return err
	}
	n.stagedFiles = files
	n.setStatus(StatusStaged)

	if !e.stateless {
		rec := &stateRecord{Digest: fp.String(), Stage: stageStage, Files: files}
		if err := saveState(e.dirs.State, p.Name, rec); err != nil {
			slog.Warn("failed to persist lifecycle state", "part", p.Name, "error", err)
		}
	}

	return nil
}

// Checks whether a part's recorded stage can be reused.
//
// Reuse requires a matching digest, a recorded stage, and every recorded
// file still present in the stage area (the state may outlive the
// per-entry work directory). A digest mismatch marks the part stale
// before it rebuilds.
func (e *Engine) tryReuse(n *node, fp digest.Digest) bool {
	if e.stateless {
		return false
	}

	rec, err := loadState(e.dirs.State, n.part.Name)
	if err != nil || rec == nil {
		return false
	}

	if rec.Digest != fp.String() {
		slog.Debug("part inputs changed", "part", n.part.Name)
		n.setStatus(StatusStale)
		return false
	}

	for _, f := range rec.Files {
		if _, err := os.Stat(filepath.Join(e.dirs.stageDir(), f)); err != nil {
			return false
		}
	}

	if err := e.claimStaged(n.part.Name, rec.Files); err != nil {
		return false
	}
	n.stagedFiles = rec.Files
	return true
}

// Runs the build stage, preferring the part's override script over the
// plugin's build.
func (e *Engine) buildPart(ctx context.Context, plugin Plugin, pc *Context) error {
	if pc.Part.OverrideBuild != "" {
		env := []string{"CRATE_PART_INSTALL=" + pc.InstallDir, "CRATE_PART_SRC=" + pc.SourceDir}
		output, err := e.runner.Run(ctx, pc.Part.OverrideBuild, pc.BuildDir, env)
		if err != nil {
			return &PartError{Part: pc.Part.Name, Stage: stageBuild, Output: output, Err: err}
		}
		return nil
	}

	if err := plugin.Build(ctx, pc); err != nil {
		return &PartError{Part: pc.Part.Name, Stage: stageBuild, Err: err}
	}
	return nil
}

// Copies the part's filtered install output into the shared stage area.
func (e *Engine) stagePart(pc *Context) ([]string, error) {
	files, err := listTree(pc.InstallDir)
	if err != nil {
		return nil, &PartError{Part: pc.Part.Name, Stage: stageStage, Err: err}
	}

	files, err = filterFiles(files, pc.Part.StageFilters)
	if err != nil {
		return nil, &PartError{Part: pc.Part.Name, Stage: stageStage, Err: err}
	}

	if err := e.claimStaged(pc.Part.Name, files); err != nil {
		return nil, &PartError{Part: pc.Part.Name, Stage: stageStage, Err: err}
	}

	for _, f := range files {
		src := filepath.Join(pc.InstallDir, filepath.FromSlash(f))
		dst := filepath.Join(e.dirs.stageDir(), filepath.FromSlash(f))
		if err := copyEntry(src, dst); err != nil {
			return nil, &PartError{Part: pc.Part.Name, Stage: stageStage, Err: err}
		}
	}

	return files, nil
}

// Registers staged paths under their owning part, rejecting a path two
// parts both try to stage.
func (e *Engine) claimStaged(part string, files []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, f := range files {
		if owner, ok := e.stageOwners[f]; ok && owner != part {
			return fmt.Errorf("%w: %q staged by both %q and %q", ErrStageCollision, f, owner, part)
		}
	}
	for _, f := range files {
		e.stageOwners[f] = part
	}
	return nil
}

// Copies each part's filtered staged files into the prime area, in
// declaration order.
func (e *Engine) prime(ctx context.Context) (*Result, error) {
	primeDir := e.dirs.primeDir()
	if err := os.MkdirAll(primeDir, 0755); err != nil {
		return nil, err
	}

	result := &Result{PrimeDir: primeDir}

	for _, p := range e.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := e.nodes[p.Name]
		files, err := filterFiles(n.stagedFiles, p.PrimeFilters)
		if err != nil {
			return nil, &PartError{Part: p.Name, Stage: stagePrime, Err: err}
		}

		for _, f := range files {
			src := filepath.Join(e.dirs.stageDir(), filepath.FromSlash(f))
			dst := filepath.Join(primeDir, filepath.FromSlash(f))
			if err := copyEntry(src, dst); err != nil {
				return nil, &PartError{Part: p.Name, Stage: stagePrime, Err: err}
			}
		}

		n.setStatus(StatusPrimed)
		if n.skipped {
			result.Skipped = append(result.Skipped, p.Name)
		}
	}

	return result, nil
}

// Lists the regular files and symlinks of a tree as slash-separated
// relative paths.
func listTree(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
