// Package shell runs scripts through a restricted, environment-cleared bash
// subprocess. The subprocess is the single authority for bash quoting
// grammar: callers pipe scripts in and parse the textual output back, they
// never interpret bash syntax themselves.
package shell

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Sentinel is the reserved variable name used to extract a single computed
// value from an otherwise side-effecting script.
const Sentinel = "OUTPUT"

// Settings configure the oracle. Values are read from the environment with
// the MKINITBENCH prefix, e.g. MKINITBENCH_BASH_PATH.
type Settings struct {
	BashPath string `envconfig:"BASH_PATH" default:"/usr/bin/bash"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
}

// Bash is the shell oracle. Every call spawns a fresh, short-lived
// subprocess; there is no session reuse, retry, or timeout, so a script
// that blocks on a pipe or loops blocks the caller indefinitely.
type Bash struct {
	path   string
	logger hclog.Logger
}

// New builds an oracle from environment settings.
func New() (*Bash, error) {
	var s Settings
	if err := envconfig.Process("mkinitbench", &s); err != nil {
		return nil, errors.Wrap(err, "reading shell settings")
	}
	return &Bash{path: s.BashPath, logger: s.newLogger("rbash")}, nil
}

// NewLogger builds a named logger at the environment-configured level,
// falling back to the default level when the settings cannot be read.
func NewLogger(name string) hclog.Logger {
	var s Settings
	if err := envconfig.Process("mkinitbench", &s); err != nil {
		hclog.Default().Error("reading shell settings", "error", err)
		return hclog.Default().Named(name)
	}
	return s.newLogger(name)
}

func (s *Settings) newLogger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.LevelFromString(s.LogLevel),
	})
}

var defaultBash struct {
	once sync.Once
	bash *Bash
}

// Default returns the process-wide oracle, constructed on first use.
func Default() *Bash {
	defaultBash.once.Do(func() {
		bash, err := New()
		if err != nil {
			hclog.Default().Error("falling back to default shell settings", "error", err)
			bash = &Bash{path: "/usr/bin/bash", logger: hclog.Default().Named("rbash")}
		}
		defaultBash.bash = bash
	})
	return defaultBash.bash
}

// Run executes script in a restricted shell at dir and returns captured
// stdout. The shell sees `set -o errexit`, the script, then `exit` on its
// stdin, with an empty environment. Stderr from a successful run is logged,
// not reported as an error.
func (b *Bash) Run(script []byte, dir string) ([]byte, error) {
	b.logger.Trace("rbash", "dir", dir, "script", strconv.Quote(string(script)))

	var input bytes.Buffer
	input.WriteString("set -o errexit\n")
	input.Write(script)
	input.WriteString("\nexit\n")

	cmd := exec.Command(b.path, "-r")
	cmd.Dir = dir
	cmd.Env = []string{}
	cmd.Stdin = &input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	b.logger.Trace("rbash done",
		"err", err, "stdout", len(lines(stdout.Bytes())), "stderr", len(lines(stderr.Bytes())))

	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return nil, newError("bash script", exit.ProcessState, stderr.Bytes())
	}
	if err != nil {
		return nil, errors.Wrap(err, "spawning bash")
	}

	for _, line := range lines(stderr.Bytes()) {
		b.logger.Error("rbash", "stderr", string(line))
	}
	return stdout.Bytes(), nil
}

// Output runs script at dir and returns the value assigned to the OUTPUT
// sentinel variable, as rendered by `declare`. The rendering is bash's own
// canonical quoting of the value, which is what the codecs rely on.
func (b *Bash) Output(script []byte, dir string) (string, error) {
	appended := make([]byte, 0, len(script)+64)
	appended = append(appended, script...)
	appended = append(appended, "\ndeclare | grep -E '^"+Sentinel+"=' || true"...)

	out, err := b.Run(appended, dir)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", errors.Errorf("bash output is not valid UTF-8: %s", strconv.Quote(string(out)))
	}

	var values []string
	for _, line := range strings.Split(string(out), "\n") {
		if value, ok := strings.CutPrefix(line, Sentinel+"="); ok {
			values = append(values, value)
		}
	}
	switch len(values) {
	case 0:
		return "", errors.New("missing OUTPUT variable")
	case 1:
		return values[0], nil
	default:
		return "", errors.New("multiple OUTPUT variables")
	}
}

// lines splits captured output into lines, dropping surrounding blank ones.
func lines(b []byte) [][]byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	return bytes.Split(b, []byte("\n"))
}
