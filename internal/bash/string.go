package bash

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"mkinitbench/internal/shell"
)

// String is a single bash value held in both quoted-source and raw-byte
// form. Equality is defined on the raw bytes, so two differently quoted
// sources for the same bytes compare equal. Values are immutable once
// constructed.
//
// Raw values cannot carry NUL bytes: bash variables cannot hold them, so
// the oracle's capture channel drops them. This is a documented lossy
// boundary, not something the codec tries to repair.
type String struct {
	escaped string
	raw     []byte
}

// FromRaw resolves the canonical quoted form for raw bytes. The bytes are
// staged through a private temporary file, which sidesteps argument-length
// limits for this step; the file is removed on every exit path.
func FromRaw(raw []byte) (*String, error) {
	escaped, err := escape(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "while escaping raw bytes: %s", strconv.Quote(string(raw)))
	}
	return &String{escaped: escaped, raw: bytes.Clone(raw)}, nil
}

func escape(raw []byte) (string, error) {
	logger.Trace("escape", "input", strconv.Quote(string(raw)))
	tmp, err := os.CreateTemp("", "mkinitbench-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temporary file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrapf(err, "writing %s", tmp.Name())
	}

	dir, file, err := shell.ResolveFile(tmp.Name())
	if err != nil {
		return "", err
	}
	script := shell.Sentinel + `="$(cat '` + file + `')"`
	return runner.Output([]byte(script), dir)
}

// FromEscaped resolves a bash string from its quoted source text. The text
// is evaluated as the right-hand side of an assignment, so command and
// arithmetic substitution apply, and unquoted whitespace fails the way a
// multi-word command line would.
func FromEscaped(text string) (*String, error) {
	raw, err := unescape(text)
	if err != nil {
		return nil, errors.Wrapf(err, "while parsing possibly escaped text: %q", text)
	}
	return &String{escaped: text, raw: raw}, nil
}

func unescape(text string) ([]byte, error) {
	logger.Trace("unescape", "input", text)
	script := "INPUT=" + strings.TrimSpace(text) + "\necho -n \"$INPUT\""
	return runner.Run([]byte(script), "/")
}

// Parse tries text as quoted source first, falling back to raw bytes.
func Parse(text string) (*String, error) {
	s, err := FromEscaped(text)
	if err != nil {
		return FromRaw([]byte(text))
	}
	return s, nil
}

// Source returns the canonical quoted form.
func (s *String) Source() string {
	return s.escaped
}

// Raw returns the unquoted bytes. The slice is shared; treat it as
// read-only.
func (s *String) Raw() []byte {
	return s.raw
}

// Utf8 returns the raw bytes as a string, failing when they are not valid
// UTF-8.
func (s *String) Utf8() (string, error) {
	if !utf8.Valid(s.raw) {
		return "", errors.Errorf("raw bytes are not valid UTF-8: %s", strconv.Quote(string(s.raw)))
	}
	return string(s.raw), nil
}

// String renders the raw bytes for display, substituting invalid UTF-8.
func (s *String) String() string {
	return strings.ToValidUTF8(string(s.raw), string(utf8.RuneError))
}

// Path returns the raw bytes interpreted as a filesystem path.
func (s *String) Path() string {
	return string(s.raw)
}

// Equal reports whether both values hold the same raw bytes, regardless of
// how either was quoted.
func (s *String) Equal(other *String) bool {
	return other != nil && bytes.Equal(s.raw, other.raw)
}

// Reescape recomputes the canonical quoted form from the raw bytes,
// discarding whatever quoting the value was parsed from. Idempotent.
func (s *String) Reescape() (*String, error) {
	return FromRaw(s.raw)
}

// Arrayize splits the value into an indexed array using the shell's own
// word splitting (`read -a` under default IFS). Globbing is disabled so
// the words come back verbatim.
func (s *String) Arrayize() (*Array, error) {
	script := "set -f\nINPUT=" + s.escaped + "\nread -r -a " + shell.Sentinel + " <<< \"$INPUT\""
	out, err := runner.Output([]byte(script), "/")
	if err != nil {
		return nil, err
	}
	return NewArray(out)
}

// Mapfile splits the value into an indexed array at each delim byte
// (`mapfile -d`). A zero delim splits at NUL, which for values that passed
// through the oracle means no split at all.
func (s *String) Mapfile(delim byte) (*Array, error) {
	var script bytes.Buffer
	script.WriteString("declare -a " + shell.Sentinel + "=()\n")
	script.WriteString("INPUT=" + s.escaped + "\n")
	script.WriteString("mapfile -d '")
	script.WriteByte(delim)
	script.WriteString("' -t " + shell.Sentinel + " 1>&- < <(\nprintf '%s' \"$INPUT\"\n)")

	out, err := runner.Output(script.Bytes(), "/")
	if err != nil {
		return nil, err
	}
	return NewArray(out)
}
