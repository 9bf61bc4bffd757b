package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/crateforge/crate/internal/descriptor"
	"github.com/crateforge/crate/internal/extension"
)

// Represents the 'crate expand-extensions' command.
type ExpandExtensionsCmd struct {
	Project string `short:"p" help:"Project directory containing crate.yaml." default:"." type:"existingdir"`
}

// Executes the expand-extensions command.
//
// Prints the descriptor as it would enter plan resolution, with every
// extension's defaults merged in.
func (c *ExpandExtensionsCmd) Run(ctx context.Context) error {
	desc, err := descriptor.Load(filepath.Join(c.Project, descriptor.Filename))
	if err != nil {
		return err
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	expanded, err := extension.Expand(desc)
	if err != nil {
		return err
	}

	out, err := descriptor.Marshal(expanded)
	if err != nil {
		return err
	}

	fmt.Print(string(out))
	return nil
}
