package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mkinitbench/internal/mkinitcpio"
	"mkinitbench/internal/version"
)

const (
	exitOK = 0
	// exitChanged is reserved for diff: differences exist.
	exitChanged = 1
	exitError   = 2
)

func main() {
	args := os.Args[1:]
	if containsVersionFlag(args) {
		fmt.Fprintln(os.Stdout, version.String())
		return
	}

	if len(args) < 1 {
		printUsage(os.Stderr)
		os.Exit(exitError)
	}

	cmd := args[0]
	subArgs := args[1:]

	switch cmd {
	case "config":
		handleError(runConfig(subArgs))
	case "presets":
		handleError(runPresets(subArgs))
	case "diff":
		handleError(runDiff(subArgs))
	case "mock":
		handleError(runMock(subArgs))
	case "version":
		handleError(runVersion(subArgs))
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		os.Exit(exitOK)
	default:
		handleError(fmt.Errorf("unknown command: %s", cmd))
	}
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mkinitbench config [CONFIG_FILE]\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
			return exitRequest{code: exitOK}
		}
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("config takes at most one file")
	}

	var cfg *mkinitcpio.Config
	var err error
	if fs.NArg() == 1 {
		cfg, err = mkinitcpio.LoadConfig(fs.Arg(0))
	} else {
		cfg, err = mkinitcpio.LoadDefault()
	}
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, cfg.String())
	return nil
}

func runPresets(args []string) error {
	fs := flag.NewFlagSet("presets", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mkinitbench presets [PRESET_DIR]\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
			return exitRequest{code: exitOK}
		}
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("presets takes at most one directory")
	}

	var presets []mkinitcpio.Preset
	var err error
	if fs.NArg() == 1 {
		presets, err = mkinitcpio.LoadAllPresets(fs.Arg(0))
	} else {
		presets, err = mkinitcpio.LoadDefaultPresets()
	}
	if err != nil {
		return err
	}
	for i := range presets {
		if i > 0 {
			fmt.Fprintln(os.Stdout)
		}
		fmt.Fprintf(os.Stdout, "# %s (%s)\n", presets[i].Filename, presets[i].Name)
		fmt.Fprint(os.Stdout, presets[i].String())
	}
	return nil
}

func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mkinitbench diff FILE...\n\n"+
			"Files ending in .preset diff as preset files, anything else as a config.\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
			return exitRequest{code: exitOK}
		}
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("diff needs at least one file")
	}

	changed := false
	for _, path := range fs.Args() {
		var diff string
		var err error
		if filepath.Ext(path) == ".preset" {
			diff, err = mkinitcpio.DiffPreset(path)
		} else {
			diff, err = mkinitcpio.DiffConfig(path)
		}
		if err != nil {
			return err
		}
		if diff != "" {
			changed = true
			fmt.Fprint(os.Stdout, diff)
		}
	}
	if changed {
		return exitRequest{code: exitChanged}
	}
	return nil
}

func runMock(args []string) error {
	var outputDir string
	var generate bool

	fs := flag.NewFlagSet("mock", flag.ContinueOnError)
	fs.StringVar(&outputDir, "output", "mock", "directory to create mock trees under")
	fs.StringVar(&outputDir, "o", "mock", "directory to create mock trees under (shorthand)")
	fs.BoolVar(&generate, "generate", false, "run mkinitcpio against each mock preset")
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mkinitbench mock [flags] [PRESET_FILE...]\n\nFlags:\n")
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
			return exitRequest{code: exitOK}
		}
		return err
	}

	var presets []mkinitcpio.Preset
	if fs.NArg() == 0 {
		loaded, err := mkinitcpio.LoadDefaultPresets()
		if err != nil {
			return err
		}
		presets = loaded
	}
	for _, path := range fs.Args() {
		loaded, err := mkinitcpio.LoadPreset(path)
		if err != nil {
			return err
		}
		presets = append(presets, loaded...)
	}

	mocks := mkinitcpio.MockPresets{OutputDir: outputDir}
	for _, preset := range presets {
		path, err := mocks.Create(preset)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, path)
		if generate {
			if err := mkinitcpio.Generate(path); err != nil {
				return err
			}
		}
	}
	return nil
}

func runVersion(args []string) error {
	if len(args) > 0 {
		return errors.New("version takes no arguments")
	}
	fmt.Fprintln(os.Stdout, version.String())
	return nil
}

func handleError(err error) {
	if err == nil {
		return
	}

	var req exitRequest
	if errors.As(err, &req) {
		os.Exit(req.code)
	}

	fmt.Fprintf(os.Stderr, "mkinitbench: %v\n", err)
	os.Exit(exitError)
}

func containsVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--version" {
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mkinitbench <command> [flags] [ARGS]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  config   Print a mkinitcpio configuration in canonical quoting")
	fmt.Fprintln(w, "  presets  Print installed presets in canonical quoting")
	fmt.Fprintln(w, "  diff     Compare files with their canonical rendering")
	fmt.Fprintln(w, "  mock     Build fast self-contained copies of presets")
	fmt.Fprintln(w, "  version  Print the mkinitbench version string")
	fmt.Fprintln(w, "\nGlobal Options:")
	fmt.Fprintln(w, "  --version  Print the mkinitbench version string and exit")
}

type exitRequest struct {
	code int
}

func (e exitRequest) Error() string {
	return ""
}
