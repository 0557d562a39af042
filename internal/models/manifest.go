package models

import (
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var embeddedManifest []byte

// Variant describes one downloadable model artefact.
type Variant struct {
	DisplayName string `yaml:"display_name"`
	Filename    string `yaml:"filename"`
	URL         string `yaml:"url"`
	// SHA256 of the artefact; empty skips verification until
	// `cmd/tools/update_manifest` fills it in.
	SHA256    string `yaml:"sha256"`
	SizeBytes int64  `yaml:"size_bytes"`
}

// Manifest maps variant names to artefacts.
type Manifest struct {
	Variants map[string]Variant `yaml:"variants"`
}

// LoadManifest parses a YAML manifest.
func LoadManifest(r io.Reader) (Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Manifest{}, fmt.Errorf("models: read manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("models: parse manifest: %w", err)
	}
	return manifest, nil
}

// DefaultManifest returns the manifest embedded in the binary.
func DefaultManifest() (Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(embeddedManifest, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("models: parse embedded manifest: %w", err)
	}
	if len(manifest.Variants) == 0 {
		return Manifest{}, fmt.Errorf("models: embedded manifest is empty")
	}
	return manifest, nil
}
