// Package models resolves and downloads whisper.cpp model artefacts.
package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
)

// Manager resolves model variants to files on disk, downloading missing
// artefacts into its data directory.
type Manager struct {
	manifest Manifest
	dataDir  string
	client   *http.Client
	logger   *slog.Logger
}

// NewManager builds a manager over the given manifest. Downloads land in
// dataDir/models.
func NewManager(manifest Manifest, dataDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		manifest: manifest,
		dataDir:  dataDir,
		client:   &http.Client{},
		logger:   logger.With("component", "models"),
	}
}

// SetClient overrides the HTTP client used for downloads.
func (m *Manager) SetClient(client *http.Client) {
	if client != nil {
		m.client = client
	}
}

// Variants lists the manifest variant names in sorted order.
func (m *Manager) Variants() []string {
	names := make([]string, 0, len(m.manifest.Variants))
	for name := range m.manifest.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the on-disk path for a variant without downloading.
// An explicit override path wins over the manifest.
func (m *Manager) Resolve(variant, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("models: model path %q: %w", override, err)
		}
		return override, nil
	}
	v, ok := m.manifest.Variants[variant]
	if !ok {
		return "", fmt.Errorf("models: unknown variant %q (known: %v)", variant, m.Variants())
	}
	return filepath.Join(m.dataDir, "models", v.Filename), nil
}

// EnsureVariant returns the path to the variant's model file, downloading
// and verifying it when it is not already present.
func (m *Manager) EnsureVariant(ctx context.Context, variant string) (string, error) {
	v, ok := m.manifest.Variants[variant]
	if !ok {
		return "", fmt.Errorf("models: unknown variant %q (known: %v)", variant, m.Variants())
	}

	path := filepath.Join(m.dataDir, "models", v.Filename)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("models: create model dir: %w", err)
	}

	m.logger.Info("downloading model", "variant", variant, "url", v.URL, "size_bytes", v.SizeBytes)
	if err := m.download(ctx, v, path); err != nil {
		return "", err
	}
	m.logger.Info("model ready", "variant", variant, "path", path)
	return path, nil
}

func (m *Manager) download(ctx context.Context, v Variant, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return fmt.Errorf("models: build download request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("models: download %s: %w", v.Filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download %s: unexpected status %s", v.Filename, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), v.Filename+".partial-*")
	if err != nil {
		return fmt.Errorf("models: create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		return fmt.Errorf("models: write %s: %w", v.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("models: close %s: %w", v.Filename, err)
	}

	if v.SHA256 != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if sum != v.SHA256 {
			return fmt.Errorf("models: checksum mismatch for %s: want %s, got %s", v.Filename, v.SHA256, sum)
		}
	} else {
		m.logger.Warn("manifest has no checksum, skipping verification", "filename", v.Filename)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("models: move %s into place: %w", v.Filename, err)
	}
	return nil
}
