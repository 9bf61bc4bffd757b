package parts

import (
	"reflect"
	"testing"
)

func TestFilterFiles(t *testing.T) {
	files := []string{
		"bin/app",
		"lib/libfoo.so",
		"usr/share/doc/readme",
		"usr/share/man/man1/app.1",
	}

	tests := []struct {
		name    string
		filters []string
		want    []string
	}{
		{
			name: "no filters keeps everything",
			want: files,
		},
		{
			name:    "include by directory",
			filters: []string{"bin"},
			want:    []string{"bin/app"},
		},
		{
			name:    "include by glob",
			filters: []string{"lib/*.so"},
			want:    []string{"lib/libfoo.so"},
		},
		{
			name:    "exclude only",
			filters: []string{"-usr/share/doc"},
			want:    []string{"bin/app", "lib/libfoo.so", "usr/share/man/man1/app.1"},
		},
		{
			name:    "include and exclude",
			filters: []string{"usr/share", "-usr/share/doc"},
			want:    []string{"usr/share/man/man1/app.1"},
		},
		{
			name:    "doublestar",
			filters: []string{"usr/**/man1"},
			want:    []string{"usr/share/man/man1/app.1"},
		},
		{
			name:    "nothing matches",
			filters: []string{"opt"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterFiles(files, tt.filters)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("filtered = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterFilesBadPattern(t *testing.T) {
	_, err := filterFiles([]string{"bin/app"}, []string{"[unclosed"})
	if err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}
