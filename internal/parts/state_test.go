package parts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFingerprintStable(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "src", "main.c"), "int main() {}\n")

	p := &Part{Name: "app", Plugin: "dump", Source: "src"}

	first, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprint not stable: %s vs %s", first, second)
	}
}

func TestFingerprintChangesWithSource(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "src", "main.c"), "int main() {}\n")

	p := &Part{Name: "app", Plugin: "dump", Source: "src"}

	before, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeFile(t, filepath.Join(project, "src", "main.c"), "int main() { return 1; }\n")

	after, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before == after {
		t.Fatal("fingerprint unchanged after source edit")
	}
}

func TestFingerprintChangesWithConfig(t *testing.T) {
	project := t.TempDir()
	p := &Part{Name: "app", Plugin: "nil"}

	before, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.OverrideBuild = "echo hello"
	after, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before == after {
		t.Fatal("fingerprint unchanged after override-build edit")
	}
}

func TestFingerprintChangesWithDeps(t *testing.T) {
	project := t.TempDir()
	p := &Part{Name: "app", Plugin: "nil", After: []string{"lib"}}

	depA := digest.FromString("lib-output-a")
	depB := digest.FromString("lib-output-b")

	first, err := fingerprint(p, project, []digest.Digest{depA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := fingerprint(p, project, []digest.Digest{depB})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("fingerprint unchanged after dependency output change")
	}
}

func TestFingerprintMissingSource(t *testing.T) {
	project := t.TempDir()
	p := &Part{Name: "app", Plugin: "dump", Source: "gone"}

	// A missing source hashes as absent rather than failing; its later
	// appearance must change the digest.
	absent, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeFile(t, filepath.Join(project, "gone", "file"), "content")
	present, err := fingerprint(p, project, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if absent == present {
		t.Fatal("fingerprint unchanged after source appeared")
	}
}

func TestStateRoundTrip(t *testing.T) {
	stateDir := t.TempDir()

	rec := &stateRecord{
		Digest: digest.FromString("inputs").String(),
		Stage:  stageStage,
		Files:  []string{"bin/app", "lib/libfoo.so"},
	}
	if err := saveState(stateDir, "app", rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := loadState(stateDir, "app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil {
		t.Fatal("state record not found after save")
	}
	if loaded.Digest != rec.Digest || loaded.Stage != rec.Stage {
		t.Fatalf("loaded = %+v, want %+v", loaded, rec)
	}
	if len(loaded.Files) != 2 {
		t.Fatalf("files = %v, want 2 entries", loaded.Files)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Fatal("updated-at not recorded")
	}
}

func TestLoadStateMissing(t *testing.T) {
	rec, err := loadState(t.TempDir(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("record = %+v, want nil for missing state", rec)
	}
}

func TestLoadStateCorrupt(t *testing.T) {
	stateDir := t.TempDir()
	writeFile(t, statePath(stateDir, "app"), "{{{ not yaml")

	rec, err := loadState(stateDir, "app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatal("corrupt state should read as no record")
	}
}

func TestStatePathSlashes(t *testing.T) {
	got := statePath("/state", "web-service/app")
	if filepath.Dir(got) != "/state" {
		t.Fatalf("state path %q escapes the state dir", got)
	}
}

func TestPartPathsInjective(t *testing.T) {
	// "a--b" and "a/b" are both valid part names and must never share
	// a state record or work directory.
	if statePath("/state", "a--b") == statePath("/state", "a/b") {
		t.Fatal("distinct part names map to the same state path")
	}

	dirs := Dirs{Work: "/work"}
	if dirs.partDir("a--b", "src") == dirs.partDir("a/b", "src") {
		t.Fatal("distinct part names map to the same work directory")
	}
	if filepath.Dir(dirs.partDir("a/b", "src")) != filepath.Join("/work", "parts", escapePart("a/b")) {
		t.Fatalf("slash-qualified part dir %q leaves the parts tree", dirs.partDir("a/b", "src"))
	}
}
