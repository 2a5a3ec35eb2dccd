package shell

import (
	"fmt"
	"os"
	"strings"
)

// Error reports a subprocess that finished unsuccessfully. Code is only
// meaningful when Exited is true; otherwise the process died to a signal.
type Error struct {
	Name   string
	Code   int
	Exited bool
	Stderr string
}

// Error renders one of four message shapes depending on whether an exit
// code and non-blank stderr text are available.
func (e *Error) Error() string {
	msg := e.Name + " failed"
	switch {
	case e.Exited && strings.TrimSpace(e.Stderr) != "":
		return fmt.Sprintf("%s (status = %d): %s", msg, e.Code, e.Stderr)
	case e.Exited:
		return fmt.Sprintf("%s (status = %d)", msg, e.Code)
	case strings.TrimSpace(e.Stderr) != "":
		return fmt.Sprintf("%s: %s", msg, e.Stderr)
	default:
		return msg
	}
}

func newError(name string, state *os.ProcessState, stderr []byte) *Error {
	return &Error{
		Name:   name,
		Code:   state.ExitCode(),
		Exited: state.Exited(),
		Stderr: string(stderr),
	}
}
