package parts

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

// The persisted record of a part's last successfully completed stage.
//
// Records live in the state directory as one YAML file per part, keyed by
// the input digest. A re-run whose computed digest matches skips every
// stage up to and including the recorded one.
type stateRecord struct {
	Digest    string    `yaml:"digest"`
	Stage     string    `yaml:"stage"`
	Files     []string  `yaml:"files,omitempty"`
	UpdatedAt time.Time `yaml:"updated-at"`
}

// Computes the digest of a part's declared inputs: its plugin
// configuration, source tree content, filters, and the digests of its
// dependencies' staged output.
//
// The digest is stable across runs and hosts for identical inputs; any
// change to them produces a different digest and invalidates recorded
// stages.
func fingerprint(p *Part, projectDir string, depDigests []digest.Digest) (digest.Digest, error) {
	digester := digest.SHA256.Digester()
	h := digester.Hash()

	config, err := yaml.Marshal(map[string]any{
		"plugin":         p.Plugin,
		"source":         p.Source,
		"override-build": p.OverrideBuild,
		"stage":          p.StageFilters,
		"prime":          p.PrimeFilters,
		"options":        p.Options,
	})
	if err != nil {
		return "", err
	}
	h.Write(config)

	if p.Source != "" {
		src := p.Source
		if !filepath.IsAbs(src) {
			src = filepath.Join(projectDir, src)
		}
		if err := hashTree(h, src); err != nil {
			return "", fmt.Errorf("part %q: hashing source: %w", p.Name, err)
		}
	}

	for _, d := range depDigests {
		fmt.Fprintf(h, "dep:%s\n", d)
	}

	return digester.Digest(), nil
}

// Writes the content of a file tree into a hash in deterministic order.
//
// Each regular file contributes its relative path, mode, and bytes;
// symlinks contribute their target. A missing tree hashes as absent
// rather than failing, so a deleted source shows up as a change.
func hashTree(w io.Writer, root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		fmt.Fprintf(w, "absent:%s\n", filepath.Base(root))
		return nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "file:%s mode:%o\n", filepath.ToSlash(rel), info.Mode())

		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "link:%s\n", link)
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// Loads a part's state record, returning nil when none exists.
func loadState(stateDir, part string) (*stateRecord, error) {
	data, err := os.ReadFile(statePath(stateDir, part))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec stateRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		// A corrupt record is treated as no record: the part rebuilds.
		return nil, nil
	}
	return &rec, nil
}

// Persists a part's state record.
func saveState(stateDir, part string, rec *stateRecord) error {
	rec.UpdatedAt = time.Now().UTC()

	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(statePath(stateDir, part), data, 0644)
}

// Returns the state file path for a part. Part names may contain slashes
// (extension-contributed parts), which are escaped.
func statePath(stateDir, part string) string {
	return filepath.Join(stateDir, escapePart(part)+".yaml")
}
