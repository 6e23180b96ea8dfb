package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// UpdateGoldenEnv records the current output as the golden file when set to "1".
const UpdateGoldenEnv = "CATALOG_UPDATE_GOLDEN"

// GoldenDir is where golden files live, relative to the test package directory.
var GoldenDir = filepath.Join("testdata", "golden")

// AssertGolden fails t when got differs from the golden file name. A missing
// golden file is an error unless UpdateGoldenEnv is set.
func AssertGolden(t testing.TB, name string, got []byte) {
	t.Helper()
	path := filepath.Join(GoldenDir, name)

	if os.Getenv(UpdateGoldenEnv) == "1" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("golden dir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("record golden %s: %v", path, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden %s (set %s=1 to record it): %v", path, UpdateGoldenEnv, err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("output differs from %s:\n--- want\n%s\n--- got\n%s", path, want, got)
	}
}

// AssertGoldenJSON encodes v as indented JSON, the way catalogctl prints
// results, and compares it with the golden file name.
func AssertGoldenJSON(t testing.TB, name string, v any) {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	AssertGolden(t, name, buf.Bytes())
}
