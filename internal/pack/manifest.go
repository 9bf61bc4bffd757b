package pack

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crateforge/crate/internal/descriptor"
	"github.com/crateforge/crate/internal/plan"
)

// Records how an artifact was built. Serialized as manifest.yaml at the
// archive root.
type Manifest struct {
	CrateVersion string `yaml:"crate-version"`
	CreatedAt    string `yaml:"created-at"`
	Platform     string `yaml:"platform"`
	BuildBase    string `yaml:"build-base"`
	RunBase      string `yaml:"run-base"`
	Architecture string `yaml:"architecture"`
}

// The descriptor's declarative metadata, carried into the artifact as
// metadata.yaml so runtime tooling can read it without the full
// descriptor.
type metadata struct {
	Name        string                          `yaml:"name"`
	Summary     string                          `yaml:"summary,omitempty"`
	Description string                          `yaml:"description,omitempty"`
	Config      map[string]any                  `yaml:"config,omitempty"`
	Endpoints   map[string]descriptor.Endpoint  `yaml:"endpoints,omitempty"`
	Containers  map[string]descriptor.Container `yaml:"containers,omitempty"`
	Resources   map[string]descriptor.Resource  `yaml:"resources,omitempty"`
}

// Builds the serialized manifest for one entry.
func buildManifest(entry plan.Entry, version string, createdAt time.Time) ([]byte, error) {
	m := Manifest{
		CrateVersion: version,
		CreatedAt:    createdAt.UTC().Format(time.RFC3339),
		Platform:     entry.Platform,
		BuildBase:    entry.BuildBase.String(),
		RunBase:      entry.RunBase.String(),
		Architecture: entry.BuildFor,
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrPack, err)
	}
	return out, nil
}

// Builds the serialized metadata for a descriptor.
func buildMetadata(d *descriptor.Descriptor) ([]byte, error) {
	md := metadata{
		Name:        d.Name,
		Summary:     d.Summary,
		Description: d.Description,
		Config:      d.Config,
		Endpoints:   d.Endpoints,
		Containers:  d.Containers,
		Resources:   d.Resources,
	}
	out, err := yaml.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrPack, err)
	}
	return out, nil
}

// Builds the artifact's entry-point script.
func buildDispatch(name string) []byte {
	return []byte(fmt.Sprintf("#!/bin/sh\n\nexec ./bin/%s \"$@\"\n", name))
}
