package parts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

func init() {
	registerPlugin("dump", dumpPlugin{})
	registerPlugin("nil", nilPlugin{})
	registerPlugin("make", makePlugin{})
}

// Copies the part's source verbatim; there is no build step beyond moving
// the pulled tree into the install directory.
type dumpPlugin struct{}

func (dumpPlugin) Pull(ctx context.Context, pc *Context) error {
	return pullSource(pc)
}

func (dumpPlugin) Build(ctx context.Context, pc *Context) error {
	return copyTree(pc.SourceDir, pc.InstallDir)
}

// Contributes nothing by itself. Useful for parts that exist only as
// override hooks or dependency anchors.
type nilPlugin struct{}

func (nilPlugin) Pull(ctx context.Context, pc *Context) error  { return nil }
func (nilPlugin) Build(ctx context.Context, pc *Context) error { return nil }

// Runs make against the pulled source and installs with DESTDIR pointing
// at the install directory.
type makePlugin struct{}

func (makePlugin) Pull(ctx context.Context, pc *Context) error {
	return pullSource(pc)
}

func (makePlugin) Build(ctx context.Context, pc *Context) error {
	if err := copyTree(pc.SourceDir, pc.BuildDir); err != nil {
		return err
	}

	script := fmt.Sprintf("make\nmake install DESTDIR=%q\n", pc.InstallDir)
	_, err := pc.Runner.Run(ctx, script, pc.BuildDir, nil)
	return err
}

// Copies the part's source location into the source directory.
//
// Parts without a source (pure override or nil parts) pull nothing.
func pullSource(pc *Context) error {
	if pc.Part.Source == "" {
		return nil
	}

	src := pc.Part.Source
	if !filepath.IsAbs(src) {
		src = filepath.Join(pc.ProjectDir, src)
	}

	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source %q: %w", pc.Part.Source, err)
	}

	return copyTree(src, pc.SourceDir)
}
