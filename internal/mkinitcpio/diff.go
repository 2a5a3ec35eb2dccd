package mkinitcpio

import (
	"os"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// DiffConfig loads the configuration at path and returns a unified diff
// between the file as written and its canonical rendering. An empty diff
// means the file is already canonical.
func DiffConfig(path string) (string, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return "", err
	}
	return canonicalDiff(path, cfg.String())
}

// DiffPreset loads the preset file at path and returns a unified diff
// between the file as written and the canonical rendering of its entries.
func DiffPreset(path string) (string, error) {
	presets, err := LoadPreset(path)
	if err != nil {
		return "", err
	}
	var canonical string
	for i := range presets {
		canonical += presets[i].String()
	}
	return canonicalDiff(path, canonical)
}

func canonicalDiff(path, canonical string) (string, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(canonical),
		FromFile: path,
		ToFile:   path + " (canonical)",
		Context:  3,
	})
	return diff, errors.Wrap(err, "computing diff")
}
