package bash_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mkinitbench/internal/bash"
	"mkinitbench/internal/testsupport"
)

func TestFromSourceClassifies(t *testing.T) {
	testsupport.RequireBash(t)

	value, err := bash.FromSource("(a b)")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	if _, ok := value.(*bash.Array); !ok {
		t.Fatalf("FromSource(%q) = %T, want *bash.Array", "(a b)", value)
	}

	value, err = bash.FromSource("justASingleWord")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	if _, ok := value.(*bash.String); !ok {
		t.Fatalf("FromSource(%q) = %T, want *bash.String", "justASingleWord", value)
	}

	value, err = bash.FromSource("(nonAssociative)")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	arr, ok := value.(*bash.Array)
	if !ok {
		t.Fatalf("FromSource(%q) = %T, want *bash.Array", "(nonAssociative)", value)
	}
	if arr.Len() != 1 || arr.Strings()[0] != "nonAssociative" {
		t.Fatalf("entries = %v", arr.Strings())
	}

	// Surrounding whitespace does not defeat classification.
	value, err = bash.FromSource("  (a b)  ")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	if _, ok := value.(*bash.Array); !ok {
		t.Fatalf("FromSource(%q) = %T, want *bash.Array", "  (a b)  ", value)
	}
}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vars.sh")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestSourceCapturesVariables(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeScript(t, ""+
		"NAME=value\n"+
		"NAME+=2\n"+
		"ITEMS=(firstItem $'second\\nItem\\'' [10]=done)\n")

	env, err := bash.Source(path)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	name, ok := env["NAME"].(*bash.String)
	if !ok {
		t.Fatalf("NAME = %T, want *bash.String", env["NAME"])
	}
	if got := string(name.Raw()); got != "value2" {
		t.Fatalf("NAME raw = %q, want %q", got, "value2")
	}

	items, ok := env["ITEMS"].(*bash.Array)
	if !ok {
		t.Fatalf("ITEMS = %T, want *bash.Array", env["ITEMS"])
	}
	want := []string{"firstItem", "second\nItem'", "done"}
	if diff := cmp.Diff(want, items.Strings()); diff != "" {
		t.Fatalf("ITEMS mismatch (-want +got):\n%s", diff)
	}
	entries := items.Entries()
	if entries[2].Index != 10 {
		t.Fatalf("last index = %d, want 10", entries[2].Index)
	}
}

func TestSourceClosesScriptStdout(t *testing.T) {
	testsupport.RequireBash(t)
	// The file is sourced with stdout closed so nothing it prints can
	// pollute the declare output; under errexit a write attempt fails
	// the whole source.
	path := writeScript(t, "echo noise\nQUIET=yes\n")
	if _, err := bash.Source(path); err == nil {
		t.Fatal("expected error for script writing to stdout")
	}

	path = writeScript(t, "echo noise 2>/dev/null || true\nQUIET=yes\n")
	env, err := bash.Source(path)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	quiet, ok := env["QUIET"].(*bash.String)
	if !ok || string(quiet.Raw()) != "yes" {
		t.Fatalf("QUIET = %v", env["QUIET"])
	}
}

func TestSourceMissingFile(t *testing.T) {
	if _, err := bash.Source(filepath.Join(t.TempDir(), "absent.sh")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSourceFailingScript(t *testing.T) {
	testsupport.RequireBash(t)
	path := writeScript(t, "exit 3\n")
	if _, err := bash.Source(path); err == nil {
		t.Fatal("expected error for failing script")
	}
}
