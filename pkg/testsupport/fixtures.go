package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// LoadFixture reads a file relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureYAML loads a YAML fixture into dest.
func LoadFixtureYAML(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := yaml.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal YAML fixture from %s: %v", path, err)
	}
}

// WriteGolden writes data to a golden file, creating parent directories.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path.
// A missing golden file is created from actual.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// WriteConfig writes content to a config.yaml inside a fresh test directory
// and returns its path.
func WriteConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
