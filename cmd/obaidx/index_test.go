package main

import (
	"slices"
	"strconv"
	"strings"
	"testing"
)

// runIndex runs an index subcommand against dataDir and returns its
// exit code and stdout.
func runIndex(t *testing.T, dataDir string, args ...string) (int, string) {
	t.Helper()
	out, _ := captureOutput(t)
	args = append(args, "-data-dir", dataDir)
	exitCode := run(append([]string{"obaidx", "index"}, args...))
	return exitCode, out.String()
}

func parseIDs(t *testing.T, output string) []uint64 {
	t.Helper()
	var ids []uint64
	for _, line := range strings.Fields(output) {
		id, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			t.Fatalf("unexpected output line %q", line)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func TestIndexCmd_Flow(t *testing.T) {
	dir := t.TempDir()

	steps := [][]string{
		{"create", "uid"},
		{"create", "city", "-type", "duplicate"},
		{"create", "-type", "substring", "cn"},
		{"add", "-id", "1", "uid=alice", "city=izmir", "cn=Alice Admin"},
		{"add", "-id", "2", "uid=bob", "city=izmir", "cn=Bob Builder"},
		{"add", "-id", "3", "uid=carol", "city=ankara", "cn=Carol Sysadmin"},
	}
	for _, args := range steps {
		if exitCode, _ := runIndex(t, dir, args...); exitCode != 0 {
			t.Fatalf("index %v: expected exit code 0, got %d", args, exitCode)
		}
	}

	tests := []struct {
		name     string
		args     []string
		expected []uint64
	}{
		{"lookup unique", []string{"lookup", "uid", "bob"}, []uint64{2}},
		{"lookup duplicate", []string{"lookup", "city", "izmir"}, []uint64{1, 2}},
		{"lookup miss", []string{"lookup", "city", "bursa"}, nil},
		{"range", []string{"range", "uid", "alice", "bz"}, []uint64{1, 2}},
		{"search", []string{"search", "cn", "*admin*"}, []uint64{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode, out := runIndex(t, dir, tt.args...)
			if exitCode != 0 {
				t.Fatalf("expected exit code 0, got %d", exitCode)
			}
			if ids := parseIDs(t, out); !slices.Equal(ids, tt.expected) {
				t.Errorf("got %v, expected %v", ids, tt.expected)
			}
		})
	}

	exitCode, out := runIndex(t, dir, "list")
	if exitCode != 0 {
		t.Fatalf("list: expected exit code 0, got %d", exitCode)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "city") || !strings.Contains(lines[2], "unique") {
		t.Errorf("unexpected list output:\n%s", out)
	}

	if exitCode, _ := runIndex(t, dir, "remove", "-id", "2", "uid=bob", "city=izmir", "cn=Bob Builder"); exitCode != 0 {
		t.Fatalf("remove: expected exit code 0, got %d", exitCode)
	}
	if _, out := runIndex(t, dir, "lookup", "city", "izmir"); !slices.Equal(parseIDs(t, out), []uint64{1}) {
		t.Errorf("expected only document 1 after removal, got %q", out)
	}

	if exitCode, _ := runIndex(t, dir, "drop", "cn"); exitCode != 0 {
		t.Fatalf("drop: expected exit code 0, got %d", exitCode)
	}
	if exitCode, _ := runIndex(t, dir, "search", "cn", "*admin*"); exitCode != 1 {
		t.Errorf("search on dropped index: expected exit code 1, got %d", exitCode)
	}
}

func TestIndexCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	if exitCode, _ := runIndex(t, dir, "create", "uid"); exitCode != 0 {
		t.Fatalf("create: expected exit code 0, got %d", exitCode)
	}
	if exitCode, _ := runIndex(t, dir, "add", "-id", "1", "uid=alice"); exitCode != 0 {
		t.Fatalf("add: expected exit code 0, got %d", exitCode)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown subcommand", []string{"bogus"}},
		{"duplicate create", []string{"create", "uid"}},
		{"bad type", []string{"create", "mail", "-type", "fuzzy"}},
		{"bad name", []string{"create", ".hidden"}},
		{"missing id", []string{"add", "uid=bob"}},
		{"bad pair", []string{"add", "-id", "2", "uid"}},
		{"unique violation", []string{"add", "-id", "2", "uid=alice"}},
		{"wrong arity", []string{"lookup", "uid"}},
		{"search on unique", []string{"search", "uid", "*ali*"}},
		{"missing index", []string{"lookup", "mail", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if exitCode, _ := runIndex(t, dir, tt.args...); exitCode != 1 {
				t.Errorf("expected exit code 1, got %d", exitCode)
			}
		})
	}
}

func TestIndexCmd_Help(t *testing.T) {
	out, _ := captureOutput(t)
	if exitCode := indexCmd(nil); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	if !strings.Contains(out.String(), "Manage document indexes") {
		t.Errorf("unexpected help output %q", out.String())
	}
}

func TestParseDocument(t *testing.T) {
	doc, err := parseDocument(7, []string{"mail=a@x", "mail=b@x", "cn=A=B"})
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	if doc.ID != 7 {
		t.Errorf("expected id 7, got %d", doc.ID)
	}
	if got := doc.Get("mail"); !slices.Equal(got, []string{"a@x", "b@x"}) {
		t.Errorf("mail = %v", got)
	}
	if got := doc.Get("cn"); !slices.Equal(got, []string{"A=B"}) {
		t.Errorf("cn = %v", got)
	}

	if _, err := parseDocument(1, nil); err == nil {
		t.Error("expected error for no pairs")
	}
	if _, err := parseDocument(1, []string{"=x"}); err == nil {
		t.Error("expected error for empty field")
	}
}
