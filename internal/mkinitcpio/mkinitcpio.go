package mkinitcpio

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"mkinitbench/internal/bash"
	"mkinitbench/internal/shell"
)

var logger = shell.NewLogger("mkinitcpio")

const mkinitcpioBin = "/usr/bin/mkinitcpio"

// MockPresets derives self-contained preset/config pairs from installed
// presets, rewritten so a real mkinitcpio run against them is fast and
// writes only under OutputDir: compression is disabled and image paths
// point into the mock directory.
type MockPresets struct {
	// OutputDir is the root under which mock trees are created, one per
	// (file stem, preset name) pair.
	OutputDir string

	defaultConfig *Config
}

// Create writes the mock tree for one preset and returns the path of the
// generated preset file. Any previous tree for the same preset is removed
// first. The source preset is not modified.
func (m *MockPresets) Create(preset Preset) (string, error) {
	dir := filepath.Join(m.OutputDir, preset.Stem(), preset.Name.Path())
	if err := cleanup(dir); err != nil {
		return "", err
	}
	if err := createDir(dir); err != nil {
		return "", err
	}
	logger.Debug("creating mock preset", "preset", preset.Name.String(), "dir", dir)

	cfg, err := m.loadConfig(preset)
	if err != nil {
		return "", err
	}

	// Uncompressed images build fastest and diff cleanly.
	mock := *cfg
	mock.Compression, err = bash.FromRaw([]byte("cat"))
	if err != nil {
		return "", err
	}
	mock.CompressionOptions = nil

	configPath := filepath.Join(dir, "mkinitcpio.conf")
	if err := mock.SaveTo(configPath); err != nil {
		return "", err
	}

	preset.Config, err = bash.FromRaw([]byte(configPath))
	if err != nil {
		return "", err
	}
	preset.Image, err = bash.FromRaw([]byte(filepath.Join(dir, "test.img")))
	if err != nil {
		return "", err
	}
	preset.UKI, err = bash.FromRaw([]byte(filepath.Join(dir, "test.efi")))
	if err != nil {
		return "", err
	}
	preset.EFIImage = nil

	presetPath := filepath.Join(dir, preset.Stem()+".preset")
	if err := preset.SaveTo(presetPath); err != nil {
		return "", err
	}
	return presetPath, nil
}

// loadConfig resolves the configuration a preset builds with: the file the
// preset names, or the system default, loaded once and shared.
func (m *MockPresets) loadConfig(preset Preset) (*Config, error) {
	cfg, err := preset.LoadConfig()
	if err != nil || cfg != nil {
		return cfg, err
	}
	if m.defaultConfig == nil {
		loaded, err := LoadDefault()
		if err != nil {
			return nil, err
		}
		m.defaultConfig = loaded
	}
	return m.defaultConfig, nil
}

// Generate runs mkinitcpio against a preset file.
func Generate(presetPath string) error {
	_, err := shell.Command("mkinitcpio", mkinitcpioBin, "--preset", presetPath)
	return err
}

func createDir(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, 0o755), "creating %s", dir)
}

func cleanup(dir string) error {
	return errors.Wrapf(os.RemoveAll(dir), "removing %s", dir)
}
