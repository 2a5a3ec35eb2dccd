package shell

import (
	"bytes"
	"os/exec"

	"github.com/pkg/errors"
)

// Command runs an external binary with a cleared environment, `/` as the
// working directory, and no stdin, returning captured stdout. Failures use
// the same four-shape message convention as the oracle, with name as the
// message prefix. Stderr from a successful run is logged at warn level,
// stdout at info.
func Command(name, bin string, args ...string) ([]byte, error) {
	logger := NewLogger(name)
	logger.Trace("exec", "bin", bin, "args", args)

	cmd := exec.Command(bin, args...)
	cmd.Env = []string{}
	cmd.Dir = "/"
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return nil, newError(name, exit.ProcessState, stderr.Bytes())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "spawning %s", name)
	}

	for _, line := range lines(stderr.Bytes()) {
		logger.Warn(string(line))
	}
	for _, line := range lines(stdout.Bytes()) {
		logger.Info(string(line))
	}
	return stdout.Bytes(), nil
}
