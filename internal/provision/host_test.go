package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crateforge/crate/internal/descriptor"
	"github.com/crateforge/crate/internal/plan"
)

func hostEntry(buildOn string) plan.Entry {
	base := descriptor.Base{Name: "ubuntu", Channel: "24.04"}
	return plan.Entry{
		Platform:  "test",
		BuildOn:   buildOn,
		BuildBase: base,
		BuildFor:  buildOn,
		RunBase:   base,
	}
}

func TestHostEnvironmentSetupArchMismatch(t *testing.T) {
	other := "s390x"
	if plan.HostArch() == other {
		other = "amd64"
	}

	env := NewHostEnvironment(hostEntry(other))
	if err := env.Setup(context.Background()); err == nil {
		t.Fatal("expected setup to fail for a foreign build-on architecture")
	}
}

func TestHostEnvironmentRun(t *testing.T) {
	env := NewHostEnvironment(hostEntry(plan.HostArch()))
	if err := env.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	dir := t.TempDir()
	out, err := env.Run(context.Background(), "echo crate-$CRATE_TEST && pwd", dir, []string{"CRATE_TEST=ok"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "crate-ok") {
		t.Fatalf("output missing injected env: %q", out)
	}
	if !strings.Contains(out, dir) {
		t.Fatalf("output missing working directory: %q", out)
	}
}

func TestHostEnvironmentRunFailure(t *testing.T) {
	env := NewHostEnvironment(hostEntry(plan.HostArch()))

	out, err := env.Run(context.Background(), "echo before-failure && exit 3", t.TempDir(), nil)
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("err = %v, want ErrCommandFailed", err)
	}
	if !strings.Contains(out, "before-failure") {
		t.Fatalf("output not captured: %q", out)
	}
}
