package coldstate_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// appendGarbage simulates a crash mid-frame-write: a length prefix
// promising more payload than actually follows.
func appendGarbage(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	// length prefix claiming a 100-byte payload, but only 3 garbage
	// bytes actually follow.
	_, err = f.Write([]byte{100, 0, 0, 0, 1, 2, 3})
	require.NoError(t, err)
}
