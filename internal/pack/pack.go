package pack

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/crateforge/crate/internal/descriptor"
	"github.com/crateforge/crate/internal/plan"
)

// Names of the files the packager generates at the archive root. A file
// with the same name in the primed tree is shadowed by the generated
// one.
const (
	manifestName = "manifest.yaml"
	metadataName = "metadata.yaml"
	dispatchName = "dispatch"
)

// Controls artifact assembly for one build-plan entry.
type Options struct {
	Descriptor *descriptor.Descriptor // Expanded descriptor the build ran from.
	Entry      plan.Entry             // Entry the primed tree was built for.
	PrimeDir   string                 // Root of the primed output tree.
	OutputDir  string                 // Directory the artifact is written into.

	// Version recorded in the manifest. Empty uses "unknown".
	Version string

	// Build timestamp recorded in the manifest and applied to every
	// archive entry. Zero uses the current time; fixing it makes output
	// byte-reproducible.
	Timestamp time.Time
}

// Returns the artifact file name for a descriptor name, run base, and
// target architecture.
func ArtifactName(name string, base descriptor.Base, arch string) string {
	return fmt.Sprintf("%s_%s_%s.crate", name, base.Slug(), arch)
}

// Assembles the primed tree and generated metadata into a compressed
// artifact, returning the path it was written to.
//
// The archive is written atomically: output lands in a temporary file
// that is renamed over the final path only on success.
func Pack(opts Options) (string, error) {
	if opts.Version == "" {
		opts.Version = "unknown"
	}
	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}
	stamp := opts.Timestamp.UTC().Truncate(time.Second)

	manifest, err := buildManifest(opts.Entry, opts.Version, stamp)
	if err != nil {
		return "", err
	}
	metadata, err := buildMetadata(opts.Descriptor)
	if err != nil {
		return "", err
	}
	generated := []fileEntry{
		{name: dispatchName, mode: 0755, data: buildDispatch(opts.Descriptor.Name)},
		{name: manifestName, mode: 0644, data: manifest},
		{name: metadataName, mode: 0644, data: metadata},
	}

	out := filepath.Join(opts.OutputDir, ArtifactName(opts.Descriptor.Name, opts.Entry.RunBase, opts.Entry.BuildFor))

	tmp, err := os.CreateTemp(opts.OutputDir, ".crate-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPack, err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := writeArchive(tmp, opts.PrimeDir, generated, stamp); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPack, err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPack, err)
	}

	slog.Info("packed artifact", "path", out, "platform", opts.Entry.Platform)
	return out, nil
}

// A generated in-memory archive member.
type fileEntry struct {
	name string
	mode int64
	data []byte
}

// Writes the compressed archive: generated files first in fixed order,
// then the primed tree in sorted path order.
func writeArchive(w io.Writer, primeDir string, generated []fileEntry, stamp time.Time) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	shadowed := make(map[string]bool, len(generated))
	for _, f := range generated {
		shadowed[f.name] = true
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     f.name,
			Size:     int64(len(f.data)),
			Mode:     f.mode,
			ModTime:  stamp,
			Format:   tar.FormatGNU,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("%w: %v", ErrPack, err)
		}
		if _, err := tw.Write(f.data); err != nil {
			return fmt.Errorf("%w: %v", ErrPack, err)
		}
	}

	if err := writeTree(tw, primeDir, shadowed, stamp); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPack, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPack, err)
	}
	return nil
}

// Writes the primed tree into the archive in sorted slash-path order.
func writeTree(tw *tar.Writer, primeDir string, shadowed map[string]bool, stamp time.Time) error {
	var paths []string
	err := filepath.WalkDir(primeDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == primeDir {
			return nil
		}
		rel, err := filepath.Rel(primeDir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPack, err)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		if shadowed[rel] {
			slog.Debug("primed file shadowed by generated file", "path", rel)
			continue
		}
		if err := writeEntry(tw, primeDir, rel, stamp); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPack, rel, err)
		}
	}
	return nil
}

// Writes one file, directory, or symlink from the primed tree.
func writeEntry(tw *tar.Writer, primeDir, rel string, stamp time.Time) error {
	full := filepath.Join(primeDir, filepath.FromSlash(rel))
	info, err := os.Lstat(full)
	if err != nil {
		return err
	}

	hdr := &tar.Header{
		Name:    rel,
		Mode:    int64(info.Mode().Perm()),
		ModTime: stamp,
		Format:  tar.FormatGNU,
	}

	switch {
	case info.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Name = rel + "/"
		return tw.WriteHeader(hdr)

	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(full)
		if err != nil {
			return err
		}
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = target
		return tw.WriteHeader(hdr)

	case info.Mode().IsRegular():
		hdr.Typeflag = tar.TypeReg
		hdr.Size = info.Size()
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(full)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err

	default:
		return fmt.Errorf("unsupported file type %s", strings.TrimSpace(info.Mode().String()))
	}
}
