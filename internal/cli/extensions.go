package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/crateforge/crate/internal/extension"
)

// Represents the 'crate list-extensions' command.
type ListExtensionsCmd struct{}

// Executes the list-extensions command.
func (c *ListExtensionsCmd) Run(ctx context.Context) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Extension\tSupported bases\tExperimental")

	for _, ext := range extension.List() {
		bases := make([]string, 0, len(ext.Bases()))
		for _, b := range ext.Bases() {
			bases = append(bases, b.String())
		}
		experimental := ""
		if ext.Experimental() {
			experimental = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", ext.Name(), strings.Join(bases, ", "), experimental)
	}

	return w.Flush()
}
