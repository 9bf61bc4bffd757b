package plan

import (
	"reflect"
	"strings"
	"testing"

	"github.com/crateforge/crate/internal/descriptor"
)

func singleBase(platforms descriptor.Platforms) *descriptor.Descriptor {
	return &descriptor.Descriptor{
		Name:      "sample",
		Base:      "ubuntu@24.04",
		Platforms: platforms,
	}
}

func TestResolveShorthandEquivalence(t *testing.T) {
	short, err := Resolve(singleBase(descriptor.Platforms{{Name: "amd64"}}), "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	long, err := Resolve(singleBase(descriptor.Platforms{{
		Name:     "amd64",
		BuildOn:  []string{"amd64"},
		BuildFor: []string{"amd64"},
	}}), "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(short, long) {
		t.Fatalf("shorthand = %v, standard = %v, want identical", short, long)
	}
}

func TestResolveCrossProduct(t *testing.T) {
	d := singleBase(descriptor.Platforms{
		{Name: "amd64", BuildOn: []string{"amd64"}, BuildFor: []string{"amd64"}},
		{Name: "riscv64-cross", BuildOn: []string{"amd64", "riscv64"}, BuildFor: []string{"riscv64"}},
	})

	entries, err := Resolve(d, "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One entry for amd64, two for riscv64-cross.
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %v", len(entries), entries)
	}

	want := []Entry{
		{Platform: "amd64", BuildOn: "amd64", BuildFor: "amd64"},
		{Platform: "riscv64-cross", BuildOn: "amd64", BuildFor: "riscv64"},
		{Platform: "riscv64-cross", BuildOn: "riscv64", BuildFor: "riscv64"},
	}
	for i, w := range want {
		if entries[i].Platform != w.Platform || entries[i].BuildOn != w.BuildOn || entries[i].BuildFor != w.BuildFor {
			t.Fatalf("entry[%d] = %v, want %v", i, entries[i], w)
		}
	}
}

func TestResolveDeduplicates(t *testing.T) {
	d := singleBase(descriptor.Platforms{
		{Name: "first", BuildOn: []string{"amd64"}, BuildFor: []string{"amd64"}},
		{Name: "second", BuildOn: []string{"amd64"}, BuildFor: []string{"amd64"}},
	})

	entries, err := Resolve(d, "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (identical tuples collapse): %v", len(entries), entries)
	}
	if entries[0].Platform != "first" {
		t.Fatalf("kept platform %q, want the first declared", entries[0].Platform)
	}
}

func TestResolveDistinctBuildForKept(t *testing.T) {
	// Same (build-on, base) pair but different build-for: both stay.
	d := singleBase(descriptor.Platforms{
		{Name: "native", BuildOn: []string{"amd64"}, BuildFor: []string{"amd64"}},
		{Name: "cross", BuildOn: []string{"amd64"}, BuildFor: []string{"arm64"}},
	})

	entries, err := Resolve(d, "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
	}
}

func TestResolveAllCollapses(t *testing.T) {
	d := singleBase(descriptor.Platforms{
		{Name: "anywhere", BuildOn: []string{"amd64", "arm64", "riscv64"}, BuildFor: []string{"all"}},
	})

	entries, err := Resolve(d, "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 for build-for all: %v", len(entries), entries)
	}
	if entries[0].BuildFor != descriptor.ArchAll {
		t.Fatalf("build-for = %q, want all", entries[0].BuildFor)
	}
}

func TestResolveLegacySynthesis(t *testing.T) {
	d := &descriptor.Descriptor{Name: "sample", Base: "ubuntu@22.04"}

	entries, err := Resolve(d, "arm64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1: %v", len(entries), entries)
	}
	e := entries[0]
	if e.BuildOn != "arm64" || e.BuildFor != "arm64" {
		t.Fatalf("entry = %v, want host-native arm64 build", e)
	}
	if e.RunBase != (descriptor.Base{Name: "ubuntu", Channel: "22.04"}) {
		t.Fatalf("run base = %v, want ubuntu@22.04", e.RunBase)
	}
}

func TestResolveBuildBaseDevel(t *testing.T) {
	d := &descriptor.Descriptor{
		Name:      "sample",
		Base:      "ubuntu@24.04",
		BuildBase: "ubuntu@devel",
		Platforms: descriptor.Platforms{{Name: "amd64"}},
	}

	entries, err := Resolve(d, "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := entries[0]
	if e.BuildBase.Channel == descriptor.DevelChannel {
		t.Fatalf("build base %v not resolved from devel", e.BuildBase)
	}
	if e.RunBase != (descriptor.Base{Name: "ubuntu", Channel: "24.04"}) {
		t.Fatalf("run base = %v, want ubuntu@24.04", e.RunBase)
	}
}

func TestResolveMultiBase(t *testing.T) {
	d := &descriptor.Descriptor{
		Name: "sample",
		Platforms: descriptor.Platforms{
			{Name: "ubuntu@24.04:amd64"},
			{Name: "jammy", BuildOn: []string{"ubuntu@22.04:amd64"}, BuildFor: []string{"ubuntu@22.04:amd64"}},
		},
	}

	entries, err := Resolve(d, "amd64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
	}
	if entries[0].RunBase != (descriptor.Base{Name: "ubuntu", Channel: "24.04"}) {
		t.Fatalf("entry[0] run base = %v, want ubuntu@24.04", entries[0].RunBase)
	}
	if entries[1].BuildBase != (descriptor.Base{Name: "ubuntu", Channel: "22.04"}) {
		t.Fatalf("entry[1] build base = %v, want ubuntu@22.04", entries[1].BuildBase)
	}
}

func TestResolveBuildForListFails(t *testing.T) {
	d := singleBase(descriptor.Platforms{
		{Name: "fan-out", BuildOn: []string{"amd64"}, BuildFor: []string{"amd64", "arm64"}},
	})

	_, err := Resolve(d, "amd64")
	if err == nil {
		t.Fatal("expected error for build-for list")
	}
	if !strings.Contains(err.Error(), "exactly one target") {
		t.Fatalf("error = %v, want cardinality message", err)
	}
}

func TestResolveOrderStable(t *testing.T) {
	d := singleBase(descriptor.Platforms{
		{Name: "zulu", BuildOn: []string{"s390x"}, BuildFor: []string{"s390x"}},
		{Name: "alpha", BuildOn: []string{"amd64"}, BuildFor: []string{"amd64"}},
	})

	for range 10 {
		entries, err := Resolve(d, "amd64")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entries[0].Platform != "zulu" || entries[1].Platform != "alpha" {
			t.Fatalf("entries out of declaration order: %v", entries)
		}
	}
}
