package vocab

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTokenFile(t, "अ 5\nब 2\n<blk> 7\n")
	table := Load(path, testLogger())

	if table.Len() != 3 {
		t.Fatalf("Expected 3 tokens, got %d", table.Len())
	}

	if token, ok := table.Get(5); !ok || token != "अ" {
		t.Errorf("Get(5) = %q, %v", token, ok)
	}

	if token, ok := table.Get(2); !ok || token != "ब" {
		t.Errorf("Get(2) = %q, %v", token, ok)
	}

	if _, ok := table.Get(99); ok {
		t.Error("Get(99) should be absent")
	}

	if table.BlankID() != 7 {
		t.Errorf("Expected blank id 7, got %d", table.BlankID())
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	// "tok" has no index, "x abc" has a non-numeric index; both are
	// skipped and the table size equals the count of well-formed lines.
	path := writeTokenFile(t, "a 1\ntok\nx abc\nb 2\n")
	table := Load(path, testLogger())

	if table.Len() != 2 {
		t.Errorf("Expected 2 tokens, got %d", table.Len())
	}

	if table.BlankID() != 2 {
		t.Errorf("Expected blank id 2, got %d", table.BlankID())
	}
}

func TestLoadEmptyToken(t *testing.T) {
	// A line starting with a space encodes the empty token; only the
	// first space separates token from index.
	path := writeTokenFile(t, " 42\n")
	table := Load(path, testLogger())

	if table.Len() != 1 {
		t.Fatalf("Expected 1 token, got %d", table.Len())
	}

	if token, ok := table.Get(42); !ok || token != "" {
		t.Errorf("Get(42) = %q, %v; want empty token", token, ok)
	}
}

func TestLoadMissingFile(t *testing.T) {
	table := Load(filepath.Join(t.TempDir(), "missing.txt"), testLogger())

	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d tokens", table.Len())
	}

	if table.BlankID() != DefaultBlankID {
		t.Errorf("Expected default blank id %d, got %d", DefaultBlankID, table.BlankID())
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeTokenFile(t, "")
	table := Load(path, testLogger())

	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d tokens", table.Len())
	}

	if table.BlankID() != DefaultBlankID {
		t.Errorf("Expected default blank id %d, got %d", DefaultBlankID, table.BlankID())
	}
}

func TestLoadOrderInsignificant(t *testing.T) {
	// Indices, not line order, determine identity.
	path := writeTokenFile(t, "c 3\na 1\nb 2\n")
	table := Load(path, testLogger())

	if table.BlankID() != 3 {
		t.Errorf("Expected blank id 3, got %d", table.BlankID())
	}

	if token, ok := table.Get(1); !ok || token != "a" {
		t.Errorf("Get(1) = %q, %v", token, ok)
	}
}
