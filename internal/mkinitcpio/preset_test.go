package mkinitcpio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mkinitbench/internal/mkinitcpio"
	"mkinitbench/internal/testsupport"
)

const linuxPreset = `# mkinitcpio preset file for the 'linux' package
ALL_kver="/boot/vmlinuz-linux"
ALL_config=/etc/mkinitcpio.conf

PRESETS=('default' 'fallback')

default_image="/boot/initramfs-linux.img"
default_options=(--splash /usr/share/systemd/bootctl/splash-arch.bmp)

fallback_image="/boot/initramfs-linux-fallback.img"
fallback_options="-S autodetect"
`

func TestLoadPreset(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeFile(t, "linux.preset", linuxPreset)

	presets, err := mkinitcpio.LoadPreset(path)
	require.NoError(t, err)
	require.Len(t, presets, 2)

	def := presets[0]
	require.Equal(t, "default", def.Name.String())
	require.Equal(t, "linux", def.Stem())
	require.Equal(t, "/boot/vmlinuz-linux", string(def.Kver.Raw()))
	require.Equal(t, "/etc/mkinitcpio.conf", def.Config.Path())
	require.Equal(t, "/boot/initramfs-linux.img", def.Image.Path())
	require.Nil(t, def.UKI)
	require.Nil(t, def.Microcode)
	require.Equal(t,
		[]string{"--splash", "/usr/share/systemd/bootctl/splash-arch.bmp"},
		def.Options.Strings())

	fallback := presets[1]
	require.Equal(t, "fallback", fallback.Name.String())
	require.Equal(t, "/boot/vmlinuz-linux", string(fallback.Kver.Raw()))
	require.Equal(t, "/boot/initramfs-linux-fallback.img", fallback.Image.Path())
	require.Equal(t, []string{"-S", "autodetect"}, fallback.Options.Strings())
}

func TestLoadPresetScalarPresets(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeFile(t, "single.preset", ""+
		"PRESETS=default\n"+
		"default_kver=/boot/vmlinuz-linux\n")

	presets, err := mkinitcpio.LoadPreset(path)
	require.NoError(t, err)
	require.Len(t, presets, 1)
	require.Equal(t, "default", presets[0].Name.String())
}

func TestLoadPresetMissingPresets(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeFile(t, "broken.preset", "default_kver=/boot/vmlinuz-linux\n")

	_, err := mkinitcpio.LoadPreset(path)
	require.ErrorContains(t, err, "missing PRESETS array")
}

func TestPresetFallbackIsSelective(t *testing.T) {
	testsupport.RequireBash(t)
	// kver, config and microcode fall back to ALL_; image and options
	// must not.
	path := writeFile(t, "linux.preset", ""+
		"ALL_kver=/boot/vmlinuz-linux\n"+
		"ALL_microcode=(/boot/amd-ucode.img)\n"+
		"ALL_image=/boot/wrong.img\n"+
		"ALL_options=(--nope)\n"+
		"PRESETS=(default)\n")

	presets, err := mkinitcpio.LoadPreset(path)
	require.NoError(t, err)
	require.Len(t, presets, 1)

	def := presets[0]
	require.Equal(t, "/boot/vmlinuz-linux", string(def.Kver.Raw()))
	require.Equal(t, "/boot/amd-ucode.img", string(def.Microcode.Raw()))
	require.Nil(t, def.Image)
	require.Nil(t, def.Options)
}

func TestPresetLoadConfigAbsent(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeFile(t, "bare.preset", "PRESETS=(default)\n")

	presets, err := mkinitcpio.LoadPreset(path)
	require.NoError(t, err)
	require.Nil(t, presets[0].Config)

	cfg, err := presets[0].LoadConfig()
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestPresetString(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeFile(t, "linux.preset", linuxPreset)

	presets, err := mkinitcpio.LoadPreset(path)
	require.NoError(t, err)

	want := "PRESETS=(default)\n" +
		"default_kver=/boot/vmlinuz-linux\n" +
		"default_config=/etc/mkinitcpio.conf\n" +
		"default_image=/boot/initramfs-linux.img\n" +
		"default_options=(--splash /usr/share/systemd/bootctl/splash-arch.bmp)\n"
	require.Equal(t, want, presets[0].String())
}

func TestPresetSaveRoundTrip(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeFile(t, "linux.preset", linuxPreset)

	presets, err := mkinitcpio.LoadPreset(path)
	require.NoError(t, err)

	saved := filepath.Join(t.TempDir(), "saved.preset")
	require.NoError(t, presets[0].SaveTo(saved))

	back, err := mkinitcpio.LoadPreset(saved)
	require.NoError(t, err)
	require.Len(t, back, 1)
	require.Equal(t, presets[0].String(), back[0].String())
}

func TestLoadAllPresets(t *testing.T) {
	testsupport.RequireBash(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "linux.preset"), []byte(linuxPreset), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	presets, err := mkinitcpio.LoadAllPresets(dir)
	require.NoError(t, err)
	require.Len(t, presets, 2)
}
