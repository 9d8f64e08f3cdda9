package fixtures

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// AllowlistPath returns the path of an allowlist fixture, failing the test
// if it is missing.
func AllowlistPath(t *testing.T, filename string) string {
	t.Helper()
	path := filepath.Join(fixturesDir(), "allowlists", filename)
	_, err := os.Stat(path)
	require.NoError(t, err, "missing allowlist fixture: %s", filename)
	return path
}
