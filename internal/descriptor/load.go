package descriptor

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default name of the descriptor file in a project root.
const Filename = "crate.yaml"

// Reads and validates a descriptor from the given path.
func Load(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	defer f.Close()

	return Read(f)
}

// Decodes and validates a descriptor from a reader.
func Read(r io.Reader) (*Descriptor, error) {
	var d Descriptor

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// Serializes a descriptor back to YAML.
//
// Used by the expand-extensions command to print the expanded form.
func Marshal(d *Descriptor) ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return out, nil
}
