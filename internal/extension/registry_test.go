package extension

import (
	"errors"
	"testing"
)

func TestLookupBuiltins(t *testing.T) {
	ext, err := Lookup("web-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.Name() != "web-service" {
		t.Fatalf("name = %q, want web-service", ext.Name())
	}
	if len(ext.Bases()) == 0 {
		t.Fatal("web-service declares no supported bases")
	}
}

func TestLookupExperimentalGated(t *testing.T) {
	t.Setenv(ExperimentalEnv, "")

	_, err := Lookup("queue-worker")
	if !errors.Is(err, ErrExperimentalExtension) {
		t.Fatalf("error = %v, want ErrExperimentalExtension", err)
	}
}

func TestLookupExperimentalEnabled(t *testing.T) {
	t.Setenv(ExperimentalEnv, "1")

	ext, err := Lookup("queue-worker")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ext.Experimental() {
		t.Fatal("queue-worker should report experimental")
	}
}

func TestListHidesExperimental(t *testing.T) {
	t.Setenv(ExperimentalEnv, "")

	for _, ext := range List() {
		if ext.Experimental() {
			t.Fatalf("experimental extension %q listed without the toggle", ext.Name())
		}
	}
}

func TestListSorted(t *testing.T) {
	t.Setenv(ExperimentalEnv, "1")

	exts := List()
	for i := 1; i < len(exts); i++ {
		if exts[i-1].Name() >= exts[i].Name() {
			t.Fatalf("list not sorted: %q before %q", exts[i-1].Name(), exts[i].Name())
		}
	}
}
