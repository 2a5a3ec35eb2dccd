// Package testsupport holds helpers shared by tests that exercise the
// shell oracle.
package testsupport

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
)

// BashPath is where the oracle tests expect the restricted shell.
const BashPath = "/usr/bin/bash"

// RequireBash skips the test when no bash binary is installed at the
// expected path. Tests gated by it exercise the real oracle.
func RequireBash(t testing.TB) {
	t.Helper()
	if _, err := os.Stat(BashPath); err != nil {
		t.Skipf("bash not available at %s: %v", BashPath, err)
	}
}

// DecodeDeclareValue decodes a bash token as printed by `declare` or
// `printf %q`, without invoking bash. Supports bare words, '...', $'...'
// and "..." quoting. Used to cross-check oracle output against an
// independent decoder.
func DecodeDeclareValue(raw string) (string, error) {
	if strings.HasPrefix(raw, "$'") && strings.HasSuffix(raw, "'") {
		return DecodeDollarSingleQuoted(raw[2 : len(raw)-1])
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return strings.ReplaceAll(raw[1:len(raw)-1], `'\''`, "'"), nil
	}
	if strings.HasPrefix(raw, "\"") && strings.HasSuffix(raw, "\"") {
		if v, err := strconv.Unquote(raw); err == nil {
			return v, nil
		}
		body := raw[1 : len(raw)-1]
		body = strings.ReplaceAll(body, `\"`, `"`)
		body = strings.ReplaceAll(body, `\\`, `\`)
		body = strings.ReplaceAll(body, `\$`, `$`)
		return body, nil
	}
	return strings.ReplaceAll(raw, `\`, ""), nil
}

// DecodeDollarSingleQuoted decodes a $'...' body using bash escape rules.
func DecodeDollarSingleQuoted(body string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("unterminated escape")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case 'e':
			b.WriteByte(0x1b)
		case 'x':
			if i+2 >= len(body) {
				return "", fmt.Errorf("short hex escape")
			}
			hex := body[i+1 : i+3]
			v, err := strconv.ParseUint(hex, 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid hex escape %q", hex)
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			if body[i] >= '0' && body[i] <= '7' {
				j := i
				for ; j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7'; j++ {
				}
				v, err := strconv.ParseUint(body[i:j], 8, 8)
				if err != nil {
					return "", fmt.Errorf("invalid octal escape %q", body[i:j])
				}
				b.WriteByte(byte(v))
				i = j - 1
			} else {
				b.WriteByte(body[i])
			}
		}
	}
	return b.String(), nil
}
