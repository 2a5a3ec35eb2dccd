// Package mkinitcpio models mkinitcpio configuration and preset files.
// Both formats are bash scripts, so reading goes through the shell oracle
// and writing emits each value's canonical quoted form, making output
// stable regardless of how the source file quoted things.
package mkinitcpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"mkinitbench/internal/bash"
)

const (
	defaultConfigPath = "/etc/mkinitcpio.conf"
	dropInDir         = "/etc/mkinitcpio.conf.d"
	defaultPresetDir  = "/etc/mkinitcpio.d"
)

// Config is a parsed mkinitcpio configuration. Nil fields were not set in
// the source file, which is distinct from being set to an empty array.
type Config struct {
	// Modules are included in the initramfs regardless of hook detection.
	Modules *bash.Array
	// Binaries are additional dependency-parsed binaries to include.
	Binaries *bash.Array
	// Files are added to the image as-is.
	Files *bash.Array
	// Hooks run during image creation and at boot.
	Hooks *bash.Array
	// Compression selects the image compression command.
	Compression *bash.String
	// CompressionOptions are extra command line options for the compressor.
	CompressionOptions *bash.Array
	// ModulesDecompress toggles decompressing kernel modules during build.
	ModulesDecompress *bash.String
}

// LoadConfig sources the file at path and extracts the recognized
// variables, letting the shell resolve appends and substitutions first.
// String fields coerce array input by `${ARRAY[*]}` concatenation; array
// fields coerce scalar input by word splitting. Every field is reescaped
// to canonical form. Unrecognized variables are dropped.
func LoadConfig(path string) (*Config, error) {
	env, err := bash.Source(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	for _, field := range []struct {
		name string
		str  **bash.String
		arr  **bash.Array
	}{
		{name: "MODULES", arr: &cfg.Modules},
		{name: "BINARIES", arr: &cfg.Binaries},
		{name: "FILES", arr: &cfg.Files},
		{name: "HOOKS", arr: &cfg.Hooks},
		{name: "COMPRESSION", str: &cfg.Compression},
		{name: "COMPRESSION_OPTIONS", arr: &cfg.CompressionOptions},
		{name: "MODULES_DECOMPRESS", str: &cfg.ModulesDecompress},
	} {
		value, ok := env[field.name]
		if !ok {
			continue
		}
		delete(env, field.name)

		if field.str != nil {
			*field.str, err = configString(value)
		} else {
			*field.arr, err = configArray(value)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", field.name)
		}
	}
	return cfg, nil
}

// configString coerces a variable into a canonical scalar.
func configString(value bash.Value) (*bash.String, error) {
	switch v := value.(type) {
	case *bash.String:
		return v.Reescape()
	case *bash.Array:
		s, err := v.ToConcatenatedString()
		if err != nil {
			return nil, err
		}
		return s.Reescape()
	default:
		return nil, errors.Errorf("unexpected value type %T", value)
	}
}

// configArray coerces a variable into a canonical indexed array.
func configArray(value bash.Value) (*bash.Array, error) {
	switch v := value.(type) {
	case *bash.String:
		arr, err := v.Arrayize()
		if err != nil {
			return nil, err
		}
		return arr.Reescape()
	case *bash.Array:
		return v.Reescape()
	default:
		return nil, errors.Errorf("unexpected value type %T", value)
	}
}

// LoadDefault loads /etc/mkinitcpio.conf with its drop-ins layered the way
// mkinitcpio itself does: the base file and every *.conf drop-in are
// concatenated, in directory listing order, into a temporary script which
// is then sourced as one unit.
func LoadDefault() (*Config, error) {
	path, remove, err := concatDefaultConfig()
	if err != nil {
		return nil, err
	}
	defer remove()
	return LoadConfig(path)
}

func concatDefaultConfig() (string, func(), error) {
	tmp, err := os.CreateTemp("", "mkinitbench-*.conf")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating temporary config")
	}
	remove := func() { os.Remove(tmp.Name()) }
	fail := func(err error) (string, func(), error) {
		tmp.Close()
		remove()
		return "", nil, err
	}

	appendFile := func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		data = append(data, '\n')
		_, err = tmp.Write(data)
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}

	if err := appendFile(defaultConfigPath); err != nil {
		return fail(err)
	}
	// Missing drop-in directory is fine; a broken drop-in is not.
	if dropIns, err := godirwalk.ReadDirents(dropInDir, nil); err == nil {
		for _, entry := range dropIns {
			if filepath.Ext(entry.Name()) != ".conf" {
				continue
			}
			if err := appendFile(filepath.Join(dropInDir, entry.Name())); err != nil {
				return fail(err)
			}
		}
	}
	if err := tmp.Close(); err != nil {
		return fail(errors.Wrapf(err, "writing %s", tmp.Name()))
	}
	return tmp.Name(), remove, nil
}

// String renders the configuration as one NAME=value line per present
// field, in fixed order, using canonical quoting.
func (c *Config) String() string {
	var sb strings.Builder
	if c.Modules != nil {
		fmt.Fprintf(&sb, "MODULES=%s\n", c.Modules.Source())
	}
	if c.Binaries != nil {
		fmt.Fprintf(&sb, "BINARIES=%s\n", c.Binaries.Source())
	}
	if c.Files != nil {
		fmt.Fprintf(&sb, "FILES=%s\n", c.Files.Source())
	}
	if c.Hooks != nil {
		fmt.Fprintf(&sb, "HOOKS=%s\n", c.Hooks.Source())
	}
	if c.Compression != nil {
		fmt.Fprintf(&sb, "COMPRESSION=%s\n", c.Compression.Source())
	}
	if c.CompressionOptions != nil {
		fmt.Fprintf(&sb, "COMPRESSION_OPTIONS=%s\n", c.CompressionOptions.Source())
	}
	if c.ModulesDecompress != nil {
		fmt.Fprintf(&sb, "MODULES_DECOMPRESS=%s\n", c.ModulesDecompress.Source())
	}
	return sb.String()
}

// SaveTo writes the canonical rendering to path, creating parent
// directories as needed.
func (c *Config) SaveTo(path string) error {
	if err := createDir(filepath.Dir(path)); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, []byte(c.String()), 0o644), "writing %s", path)
}

// Equal compares configurations field by field on raw values.
func (c *Config) Equal(other *Config) bool {
	if other == nil {
		return false
	}
	return arrayFieldEqual(c.Modules, other.Modules) &&
		arrayFieldEqual(c.Binaries, other.Binaries) &&
		arrayFieldEqual(c.Files, other.Files) &&
		arrayFieldEqual(c.Hooks, other.Hooks) &&
		stringFieldEqual(c.Compression, other.Compression) &&
		arrayFieldEqual(c.CompressionOptions, other.CompressionOptions) &&
		stringFieldEqual(c.ModulesDecompress, other.ModulesDecompress)
}

func stringFieldEqual(a, b *bash.String) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func arrayFieldEqual(a, b *bash.Array) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
