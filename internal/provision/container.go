package provision

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/crateforge/crate/internal/plan"
)

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Configures a build container.
type ContainerConfig struct {
	ID     string   // Containerd container ID.
	Mounts []string // Host directories bind-mounted at their own paths.
}

// A containerd-backed build environment.
//
// The container runs a long-lived task (sleep infinity) so lifecycle
// commands can attach as additional execs. Host directories listed in
// the config are bind-mounted read-write at identical paths inside the
// container, so the lifecycle's host-side work tree is directly visible.
type ContainerEnvironment struct {
	rt    *Runtime
	entry plan.Entry
	cfg   ContainerConfig
}

// Creates a container environment for an entry.
func NewContainerEnvironment(rt *Runtime, entry plan.Entry, cfg ContainerConfig) *ContainerEnvironment {
	return &ContainerEnvironment{rt: rt, entry: entry, cfg: cfg}
}

// Pulls the entry's base image and starts the build container.
//
// Any stale container left by a previous build with the same ID is
// removed first.
func (c *ContainerEnvironment) Setup(ctx context.Context) error {
	image, err := c.rt.pullBase(ctx, c.entry)
	if err != nil {
		return err
	}

	c.remove(ctx)

	ctr, err := c.create(ctx, image)
	if err != nil {
		return err
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return err
	}

	slog.Debug("build container started", "id", c.cfg.ID, "base", c.entry.BuildBase.String())
	return nil
}

// Runs a shell script inside the container and returns its combined
// output.
func (c *ContainerEnvironment) Run(ctx context.Context, script, workdir string, env []string) (string, error) {
	ctr, err := c.rt.client.LoadContainer(ctx, c.cfg.ID)
	if err != nil {
		return "", err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return "", err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = []string{"/bin/sh", "-c", script}
	if workdir != "" {
		pspec.Cwd = workdir
	}
	pspec.Env = append(pspec.Env, env...)

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return "", err
	}

	var output bytes.Buffer
	execID := fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
	process, err := task.Exec(ctx, execID, &pspec, cio.NewCreator(cio.WithStreams(nil, &output, &output)))
	if err != nil {
		return "", err
	}

	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return "", err
	}
	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return "", err
	}

	exitStatus := <-statusC
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return output.String(), err
	}
	if code != 0 {
		return output.String(), fmt.Errorf("%w: exit code %d", ErrCommandFailed, code)
	}

	return output.String(), nil
}

// Destroys the container, its task, and its snapshot.
func (c *ContainerEnvironment) Teardown(ctx context.Context) error {
	c.remove(ctx)
	return c.rt.Close()
}

// Creates the containerd container with the standard build configuration.
func (c *ContainerEnvironment) create(ctx context.Context, image containerd.Image) (containerd.Container, error) {
	platform := ociPlatform(c.entry.BuildOn)

	mounts := make([]specs.Mount, 0, len(c.cfg.Mounts))
	for _, dir := range c.cfg.Mounts {
		if dir == "" {
			continue
		}
		mounts = append(mounts, specs.Mount{
			Destination: dir,
			Source:      dir,
			Type:        "bind",
			Options:     []string{"rbind", "rw"},
		})
	}

	return c.rt.client.NewContainer(ctx, c.cfg.ID,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.cfg.ID, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(platform),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithMounts(mounts),
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
}

// Starts the container's long-running task with no attached IO.
func (c *ContainerEnvironment) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return err
	}
	return nil
}

// Removes an existing container with this ID, if one exists.
//
// Any running task is killed and the container is deleted along with its
// snapshot. This is a no-op when no container with the ID is found.
func (c *ContainerEnvironment) remove(ctx context.Context) {
	existing, err := c.rt.client.LoadContainer(ctx, c.cfg.ID)
	if err != nil {
		return
	}
	if task, err := existing.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		task.Delete(ctx, containerd.WithProcessKill)
	}
	if err := existing.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("failed to delete build container", "id", c.cfg.ID, "error", err)
	}
}
