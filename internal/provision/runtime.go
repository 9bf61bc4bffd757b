package provision

import (
	"context"
	"fmt"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/crateforge/crate/internal/descriptor"
	"github.com/crateforge/crate/internal/plan"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges, allowing crate
	// to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running build containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Manages the containerd client shared by an entry's containers.
type Runtime struct {
	client *containerd.Client
}

// Creates a runtime connected to the containerd socket at the given
// address.
//
// The namespace scopes all containerd operations. The runtime must be
// closed when no longer needed.
func NewRuntime(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, err
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Pulls and unpacks the base image for an entry's build base and
// architecture.
//
// The pull is restricted to exactly the entry's platform so a manifest
// list never resolves to a near-match variant.
func (rt *Runtime) pullBase(ctx context.Context, entry plan.Entry) (containerd.Image, error) {
	ref := baseImage(entry.BuildBase)
	platform, err := parsePlatform(ociPlatform(entry.BuildOn))
	if err != nil {
		return nil, fmt.Errorf("build-on %s: %w", entry.BuildOn, err)
	}

	image, err := rt.client.Pull(ctx, ref,
		containerd.WithPlatformMatcher(platforms.Only(platform)),
		containerd.WithPullSnapshotter(snapshotter),
		containerd.WithPullUnpack,
	)
	if err != nil {
		return nil, fmt.Errorf("pulling %s for %s: %w", ref, platforms.Format(platform), err)
	}

	return image, nil
}

// Returns the registry reference of a base's build image.
func baseImage(base descriptor.Base) string {
	return fmt.Sprintf("docker.io/library/%s:%s", base.Name, base.Channel)
}

// Converts a descriptor architecture to an OCI platform string.
//
// Building for an architecture other than the host requires QEMU /
// binfmt_misc support in the kernel.
func ociPlatform(arch string) string {
	switch arch {
	case "armhf":
		return "linux/arm/v7"
	case "ppc64el":
		return "linux/ppc64le"
	default:
		return "linux/" + arch
	}
}

// Parses an OCI platform string into its spec form.
func parsePlatform(platform string) (ocispec.Platform, error) {
	return platforms.Parse(platform)
}
