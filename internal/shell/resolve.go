package shell

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ResolveFile canonicalizes path and splits it into an absolute directory
// and a bare filename. The restricted shell refuses `cd` and slash-bearing
// arguments to `source`, so callers run at the returned directory and refer
// to the file by name only.
func ResolveFile(path string) (dir, file string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving %s", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving %s", path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving %s", path)
	}
	if !info.Mode().IsRegular() {
		return "", "", errors.Errorf("not a file: %s (resolved from %s)", resolved, path)
	}

	dir, file = filepath.Split(resolved)
	dir = filepath.Clean(dir)
	if file == "" {
		return "", "", errors.Errorf("invalid path: %s (resolved from %s)", resolved, path)
	}
	return dir, file, nil
}
