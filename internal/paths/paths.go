package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "crate"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the host-shared build cache directory.
//
//	Linux:   ~/.cache/crate
//	macOS:   ~/Library/Caches/crate
func Cache() string {
	return filepath.Join(xdg.CacheHome, toolName)
}

// Path to the directory holding persisted part lifecycle state.
//
//	Linux:   ~/.local/state/crate/parts
//	macOS:   ~/Library/Application Support/crate/parts
func State() string {
	return filepath.Join(xdg.StateHome, toolName, "parts")
}

// Path to the per-project work directory holding intermediate build
// trees, rooted under the project itself so builds stay self-contained.
func Work(projectDir string) string {
	return filepath.Join(projectDir, ".crate")
}
