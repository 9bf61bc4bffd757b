package parts

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Applies stage or prime filters to a list of slash-separated relative
// paths.
//
// Filters are doublestar patterns; a leading "-" marks an exclusion. With
// no inclusion patterns everything is included, minus exclusions. A file
// is kept when it matches any inclusion (or an inclusion matches one of
// its parent directories) and no exclusion.
func filterFiles(files, filters []string) ([]string, error) {
	var includes, excludes []string
	for _, f := range filters {
		if cut, ok := strings.CutPrefix(f, "-"); ok {
			excludes = append(excludes, cut)
		} else {
			includes = append(includes, f)
		}
	}

	var kept []string
	for _, file := range files {
		in, err := matchesAny(includes, file)
		if err != nil {
			return nil, err
		}
		if len(includes) > 0 && !in {
			continue
		}

		out, err := matchesAny(excludes, file)
		if err != nil {
			return nil, err
		}
		if out {
			continue
		}

		kept = append(kept, file)
	}

	return kept, nil
}

// Reports whether the file, or any of its parent directories, matches one
// of the patterns.
func matchesAny(patterns []string, file string) (bool, error) {
	for _, pattern := range patterns {
		for p := file; p != "." && p != "/"; p = filepath.Dir(p) {
			ok, err := doublestar.Match(pattern, p)
			if err != nil {
				return false, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
