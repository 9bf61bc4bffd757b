package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/crateforge/crate/internal/plan"
)

// Executes build commands directly on the host with no isolation.
//
// Used by destructive mode and by tests. The host must already match the
// entry's build-on architecture; base mismatches are the operator's
// responsibility, which is the point of calling the mode destructive.
type HostEnvironment struct {
	entry plan.Entry
}

// Creates a host environment for an entry.
func NewHostEnvironment(entry plan.Entry) *HostEnvironment {
	return &HostEnvironment{entry: entry}
}

// Verifies the host can execute the entry.
func (h *HostEnvironment) Setup(ctx context.Context) error {
	if host := plan.HostArch(); h.entry.BuildOn != host {
		return fmt.Errorf("entry builds on %s but the host is %s", h.entry.BuildOn, host)
	}
	slog.Warn("destructive mode: building directly on the host", "entry", h.entry.String())
	return nil
}

// Runs a shell script on the host and returns its combined output.
//
// A non-zero exit wraps [ErrCommandFailed] so callers can distinguish
// script failures from execution failures.
func (h *HostEnvironment) Run(ctx context.Context, script, workdir string, env []string) (string, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
	cmd.Dir = workdir
	cmd.Env = append(os.Environ(), env...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}
	return string(out), nil
}

// Nothing to destroy for a host environment.
func (h *HostEnvironment) Teardown(ctx context.Context) error {
	return nil
}
