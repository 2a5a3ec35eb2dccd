package bash

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"mkinitbench/internal/shell"
)

// Value is a bash variable's value: either a *String or an *Array. The two
// kinds are never unified; callers type-switch.
type Value interface {
	// Source returns the quoted form of the value.
	Source() string

	bashValue()
}

func (s *String) bashValue() {}
func (a *Array) bashValue()  {}

// FromSource classifies quoted text as array or scalar by the array sigil
// and decodes it accordingly.
func FromSource(text string) (Value, error) {
	if IsArraySource(strings.TrimSpace(text)) {
		return NewArray(text)
	}
	return FromEscaped(text)
}

// Environment maps variable names (their raw bytes) to values. It is built
// fresh on every Source call; there is no shared process-wide environment.
// Variables inherited from the shell itself are included alongside the
// sourced ones; callers pick the names they care about.
type Environment map[string]Value

// Source sources the file at path in the oracle, with the file's stdout
// closed, and captures the resulting variables from `declare` output.
// Duplicate names keep the last assignment.
func Source(path string) (Environment, error) {
	dir, file, err := shell.ResolveFile(path)
	if err != nil {
		return nil, err
	}

	script := "source '" + file + "' 1>&-\ndeclare"
	out, err := runner.Run([]byte(script), dir)
	if err != nil {
		return nil, errors.Wrapf(err, "sourcing %s", path)
	}

	assigns, err := splitAssignments(out)
	if err != nil {
		return nil, err
	}
	env := make(Environment, len(assigns))
	for _, kv := range assigns {
		name, err := FromEscaped(kv.name)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding variable name %q", kv.name)
		}
		value, err := FromSource(kv.value)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing variable %s", kv.name)
		}
		env[string(name.Raw())] = value
	}
	return env, nil
}

type assignment struct {
	name  string
	value string
}

// splitAssignments parses NAME=VALUE lines, skipping blank ones. The text
// must be UTF-8; `declare` and `printf %q` always produce that.
func splitAssignments(out []byte) ([]assignment, error) {
	if !utf8.Valid(out) {
		return nil, errors.Errorf("declarations are not valid UTF-8: %s", strconv.Quote(string(out)))
	}

	var assigns []assignment
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.Errorf("missing variable assignment: %s", line)
		}
		assigns = append(assigns, assignment{name: name, value: value})
	}
	return assigns, nil
}
