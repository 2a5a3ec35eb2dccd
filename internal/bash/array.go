package bash

import (
	"bytes"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"mkinitbench/internal/shell"
)

// Kind distinguishes the two bash array flavors.
type Kind uint8

const (
	// Indexed arrays are keyed by signed 32-bit integers, possibly sparse.
	Indexed Kind = iota
	// Associative arrays are keyed by arbitrary scalar strings.
	Associative
)

// IndexedEntry is one (index, value) pair of an indexed array.
type IndexedEntry struct {
	Index int32
	Value *String
}

// AssocEntry is one (key, value) pair of an associative array.
type AssocEntry struct {
	Key   *String
	Value *String
}

// Array is an ordered collection of (key, scalar) pairs plus the quoted
// source it was parsed from. Indexed entries follow bash's own iteration
// order, which is ascending for purely numeric indices; associative order
// is whatever bash reported and is preserved for display only.
type Array struct {
	source  string
	kind    Kind
	indexed []IndexedEntry
	assoc   []AssocEntry
}

// IsArraySource reports whether quoted text looks like an array literal:
// non-empty, first byte `(`, last byte `)`. Purely syntactic; a malformed
// interior is only caught by the oracle rejecting the declaration.
func IsArraySource(text string) bool {
	return len(text) > 0 && text[0] == '(' && text[len(text)-1] == ')'
}

// NewArray parses an indexed array from its quoted source. This usually
// sees `declare` output of the form `([0]="a" ...)`, but plain `(a b)`
// literals work too.
func NewArray(source string) (*Array, error) {
	return parseArray(source, Indexed)
}

// NewAssocArray parses an associative array from its quoted source, of the
// form `([key]="value" ...)`.
func NewAssocArray(source string) (*Array, error) {
	return parseArray(source, Associative)
}

// parseArray declares the array in the oracle and walks "${!ARR[@]}",
// printing `%q=%q` per entry so every line splits unambiguously at the
// first `=`. Each side is decoded independently.
func parseArray(source string, kind Kind) (*Array, error) {
	text := strings.TrimSpace(source)
	if !IsArraySource(text) {
		return nil, errors.Errorf("invalid array source: %s", text)
	}

	flag := "-a"
	if kind == Associative {
		flag = "-A"
	}
	script := "declare " + flag + " ARR=" + text + "\n" +
		"for KEY in \"${!ARR[@]}\"; do\n" +
		"    printf '%q=%q\\n' \"$KEY\" \"${ARR[$KEY]}\"\n" +
		"done"

	out, err := runner.Run([]byte(script), "/")
	if err != nil {
		return nil, err
	}
	assigns, err := splitAssignments(out)
	if err != nil {
		return nil, err
	}

	arr := &Array{source: source, kind: kind}
	for _, kv := range assigns {
		value, err := FromEscaped(kv.value)
		if err != nil {
			return nil, err
		}
		if kind == Associative {
			key, err := FromEscaped(kv.name)
			if err != nil {
				return nil, err
			}
			arr.assoc = append(arr.assoc, AssocEntry{Key: key, Value: value})
			continue
		}
		index, err := strconv.ParseInt(kv.name, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid array index %q", kv.name)
		}
		arr.indexed = append(arr.indexed, IndexedEntry{Index: int32(index), Value: value})
	}
	return arr, nil
}

// Source returns the quoted form the array was constructed from.
func (a *Array) Source() string {
	return a.source
}

// Kind reports whether the array is indexed or associative.
func (a *Array) Kind() Kind {
	return a.kind
}

// Len returns the number of entries.
func (a *Array) Len() int {
	if a.kind == Associative {
		return len(a.assoc)
	}
	return len(a.indexed)
}

// Entries returns the (index, value) pairs of an indexed array.
func (a *Array) Entries() []IndexedEntry {
	return slices.Clone(a.indexed)
}

// AssocEntries returns the (key, value) pairs of an associative array.
func (a *Array) AssocEntries() []AssocEntry {
	return slices.Clone(a.assoc)
}

// Values returns the scalar values in order, for either kind.
func (a *Array) Values() []*String {
	if a.kind == Associative {
		values := make([]*String, 0, len(a.assoc))
		for _, entry := range a.assoc {
			values = append(values, entry.Value)
		}
		return values
	}
	values := make([]*String, 0, len(a.indexed))
	for _, entry := range a.indexed {
		values = append(values, entry.Value)
	}
	return values
}

// Strings returns the values as display strings.
func (a *Array) Strings() []string {
	values := a.Values()
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = value.String()
	}
	return out
}

// ToBashString converts the array the way `$ARRAY` would: usually just the
// first element.
func (a *Array) ToBashString() (*String, error) {
	return FromEscaped(a.source)
}

// ToConcatenatedString joins all values with a single space, mirroring
// `${ARRAY[*]}` under default IFS.
func (a *Array) ToConcatenatedString() (*String, error) {
	flag := "-a"
	if a.kind == Associative {
		flag = "-A"
	}
	script := "declare " + flag + " ARRAY=" + strings.TrimSpace(a.source) + "\n" +
		shell.Sentinel + "=\"${ARRAY[*]}\""

	out, err := runner.Output([]byte(script), "/")
	if err != nil {
		return nil, err
	}
	return FromEscaped(out)
}

// Reescape rebuilds the array literal from the canonical quoting of each
// element and reparses it. Indexed arrays come back densely keyed from
// zero, which is the form the config writer emits. Idempotent.
func (a *Array) Reescape() (*Array, error) {
	parts := make([]string, 0, a.Len())
	if a.kind == Associative {
		for _, entry := range a.assoc {
			key, err := entry.Key.Reescape()
			if err != nil {
				return nil, err
			}
			value, err := entry.Value.Reescape()
			if err != nil {
				return nil, err
			}
			parts = append(parts, "["+key.Source()+"]="+value.Source())
		}
		return NewAssocArray("(" + strings.Join(parts, " ") + ")")
	}
	for _, entry := range a.indexed {
		value, err := entry.Value.Reescape()
		if err != nil {
			return nil, err
		}
		parts = append(parts, value.Source())
	}
	return NewArray("(" + strings.Join(parts, " ") + ")")
}

// Equal compares entries on raw bytes. Indexed arrays compare pairwise in
// order, indices included; associative arrays compare as key→value sets.
func (a *Array) Equal(other *Array) bool {
	if other == nil || a.kind != other.kind {
		return false
	}
	if a.kind == Indexed {
		if len(a.indexed) != len(other.indexed) {
			return false
		}
		for i, entry := range a.indexed {
			got := other.indexed[i]
			if entry.Index != got.Index || !entry.Value.Equal(got.Value) {
				return false
			}
		}
		return true
	}

	if len(a.assoc) != len(other.assoc) {
		return false
	}
	want := make(map[string][]byte, len(a.assoc))
	for _, entry := range a.assoc {
		want[string(entry.Key.Raw())] = entry.Value.Raw()
	}
	for _, entry := range other.assoc {
		raw, ok := want[string(entry.Key.Raw())]
		if !ok || !bytes.Equal(raw, entry.Value.Raw()) {
			return false
		}
	}
	return true
}

// String renders an array literal built from each element's quoted source.
func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, value := range a.Values() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(value.Source())
	}
	sb.WriteByte(')')
	return sb.String()
}
