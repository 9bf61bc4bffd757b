package descriptor

import (
	"errors"
	"testing"
)

func TestParseBase(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Base
		wantErr bool
	}{
		{name: "standard", input: "ubuntu@24.04", want: Base{"ubuntu", "24.04"}},
		{name: "devel channel", input: "ubuntu@devel", want: Base{"ubuntu", "devel"}},
		{name: "missing channel", input: "ubuntu", wantErr: true},
		{name: "empty name", input: "@24.04", wantErr: true},
		{name: "empty channel", input: "ubuntu@", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBase(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidBase) {
					t.Fatalf("error = %v, want ErrInvalidBase", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("base = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBaseResolveDevel(t *testing.T) {
	b := Base{"ubuntu", "devel"}
	resolved, err := b.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved == b {
		t.Fatal("devel channel not resolved")
	}
	if !resolved.Known() {
		t.Fatalf("resolved base %s is not known", resolved)
	}

	// The resolved series must be flagged in-development.
	found := false
	for _, k := range knownBases {
		if k.base == resolved && k.devel {
			found = true
		}
	}
	if !found {
		t.Fatalf("resolved base %s is not an in-development series", resolved)
	}
}

func TestBaseResolveConcrete(t *testing.T) {
	b := Base{"ubuntu", "24.04"}
	resolved, err := b.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != b {
		t.Fatalf("resolved = %v, want %v unchanged", resolved, b)
	}
}

func TestBaseResolveUnknownDistro(t *testing.T) {
	if _, err := (Base{"plan9", "devel"}).Resolve(); err == nil {
		t.Fatal("expected error for unknown distribution")
	}
}

func TestBaseSlug(t *testing.T) {
	got := Base{"ubuntu", "24.04"}.Slug()
	if got != "ubuntu-24.04" {
		t.Fatalf("slug = %q, want ubuntu-24.04", got)
	}
}

func TestBaseKnown(t *testing.T) {
	if !(Base{"ubuntu", "22.04"}).Known() {
		t.Fatal("ubuntu@22.04 should be known")
	}
	if (Base{"ubuntu", "8.04"}).Known() {
		t.Fatal("ubuntu@8.04 should not be known")
	}
	if !(Base{"ubuntu", "devel"}).Known() {
		t.Fatal("ubuntu@devel should be known")
	}
}
