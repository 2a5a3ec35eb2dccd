// Package bash converts raw byte strings to and from bash source-level
// quoting: bare words, single quotes, ANSI-C $'...' quoting, and array
// literals. It does not implement bash's grammar itself; every conversion
// runs through the shell oracle and the oracle's own textual rendering is
// taken as the canonical quoted form.
package bash

import (
	"mkinitbench/internal/shell"
)

// Runner is the oracle capability the codecs depend on: run a script and
// return stdout, or run a script and return the OUTPUT sentinel value.
type Runner interface {
	Run(script []byte, dir string) ([]byte, error)
	Output(script []byte, dir string) (string, error)
}

var runner Runner = shell.Default()

// SetRunner swaps the oracle used by the codecs and returns the previous
// one. Intended for tests that replay canned script/output pairs.
func SetRunner(r Runner) Runner {
	prev := runner
	runner = r
	return prev
}

var logger = shell.NewLogger("bash")
