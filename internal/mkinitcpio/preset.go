package mkinitcpio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"mkinitbench/internal/bash"
)

// Preset is one entry of a mkinitcpio preset file: the preset named Name
// inside the file at Filename. Only Name is guaranteed present; every
// other field is nil when the file does not define it.
type Preset struct {
	// Filename is the path of the preset file this entry came from.
	Filename *bash.String
	// Name is the entry's name as listed in the PRESETS array.
	Name *bash.String

	Kver      *bash.String
	Config    *bash.String
	Image     *bash.String
	UKI       *bash.String
	EFIImage  *bash.String
	Microcode *bash.String
	Options   *bash.Array
}

// LoadPreset sources a preset file and returns one Preset per name in its
// PRESETS array. A scalar PRESETS is treated as a single name. The file
// stem (name without the .preset extension) is not consulted; only the
// PRESETS entries matter.
func LoadPreset(path string) ([]Preset, error) {
	filename, err := bash.FromRaw([]byte(path))
	if err != nil {
		return nil, err
	}
	env, err := bash.Source(path)
	if err != nil {
		return nil, err
	}

	var names []*bash.String
	switch v := env["PRESETS"].(type) {
	case nil:
		return nil, errors.Errorf("missing PRESETS array: %s", path)
	case *bash.Array:
		arr, err := v.Reescape()
		if err != nil {
			return nil, err
		}
		names = arr.Values()
	case *bash.String:
		name, err := v.Reescape()
		if err != nil {
			return nil, err
		}
		names = []*bash.String{name}
	}

	presets := make([]Preset, 0, len(names))
	for _, name := range names {
		preset, err := parsePreset(filename, name, env)
		if err != nil {
			return nil, errors.Wrapf(err, "reading preset %s", name)
		}
		presets = append(presets, preset)
	}
	return presets, nil
}

// parsePreset collects the `<name>_<field>` variables for one preset.
// kver, config and microcode fall back to the file-wide `ALL_<field>`
// variable when the prefixed one is absent; the remaining fields do not.
func parsePreset(filename, name *bash.String, env bash.Environment) (Preset, error) {
	prefix := string(name.Raw())
	lookup := func(suffix string, all bool) bash.Value {
		if value, ok := env[prefix+"_"+suffix]; ok {
			return value
		}
		if all {
			return env["ALL_"+suffix]
		}
		return nil
	}

	preset := Preset{Filename: filename, Name: name}
	var err error
	for _, field := range []struct {
		suffix string
		all    bool
		str    **bash.String
		arr    **bash.Array
	}{
		{suffix: "kver", all: true, str: &preset.Kver},
		{suffix: "config", all: true, str: &preset.Config},
		{suffix: "image", str: &preset.Image},
		{suffix: "uki", str: &preset.UKI},
		{suffix: "efi_image", str: &preset.EFIImage},
		{suffix: "microcode", all: true, str: &preset.Microcode},
		{suffix: "options", arr: &preset.Options},
	} {
		value := lookup(field.suffix, field.all)
		if field.str != nil {
			*field.str, err = presetString(value)
		} else {
			*field.arr, err = presetArray(value)
		}
		if err != nil {
			return Preset{}, errors.Wrapf(err, "reading %s_%s", prefix, field.suffix)
		}
	}
	return preset, nil
}

// presetString coerces an optional variable into a canonical scalar.
func presetString(value bash.Value) (*bash.String, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *bash.String:
		return v.Reescape()
	case *bash.Array:
		return v.ToConcatenatedString()
	default:
		return nil, errors.Errorf("unexpected value type %T", value)
	}
}

// presetArray coerces an optional variable into a canonical indexed array.
// Scalars split at spaces only, so quoted whitespace inside an option
// string survives as-is rather than being reinterpreted by IFS.
func presetArray(value bash.Value) (*bash.Array, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *bash.String:
		arr, err := v.Mapfile(' ')
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

// String renders the preset as a single-entry preset file: a PRESETS
// array holding the name, then one `<name>_<field>=` line per present
// field, in fixed order.
func (p *Preset) String() string {
	var sb strings.Builder
	prefix := p.Name.Source()
	sb.WriteString("PRESETS=(" + prefix + ")\n")
	line := func(suffix, source string) {
		sb.WriteString(prefix + "_" + suffix + "=" + source + "\n")
	}
	if p.Kver != nil {
		line("kver", p.Kver.Source())
	}
	if p.Config != nil {
		line("config", p.Config.Source())
	}
	if p.Image != nil {
		line("image", p.Image.Source())
	}
	if p.UKI != nil {
		line("uki", p.UKI.Source())
	}
	if p.EFIImage != nil {
		line("efi_image", p.EFIImage.Source())
	}
	if p.Microcode != nil {
		line("microcode", p.Microcode.Source())
	}
	if p.Options != nil {
		line("options", p.Options.Source())
	}
	return sb.String()
}

// SaveTo writes the canonical rendering to path, creating parent
// directories as needed.
func (p *Preset) SaveTo(path string) error {
	if err := createDir(filepath.Dir(path)); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, []byte(p.String()), 0o644), "writing %s", path)
}

// Stem returns the preset file's base name without the .preset extension.
func (p *Preset) Stem() string {
	base := filepath.Base(p.Filename.Path())
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadConfig loads the configuration file the preset points at. A preset
// without a config field yields nil, not an error.
func (p *Preset) LoadConfig() (*Config, error) {
	if p.Config == nil {
		return nil, nil
	}
	return LoadConfig(p.Config.Path())
}

// LoadAllPresets loads every *.preset file in dir, in directory listing
// order.
func LoadAllPresets(dir string) ([]Preset, error) {
	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	var presets []Preset
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".preset" {
			continue
		}
		loaded, err := LoadPreset(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		presets = append(presets, loaded...)
	}
	return presets, nil
}

// LoadDefaultPresets loads every preset installed under /etc/mkinitcpio.d.
func LoadDefaultPresets() ([]Preset, error) {
	return LoadAllPresets(defaultPresetDir)
}
