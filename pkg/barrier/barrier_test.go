package barrier

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("filesystem-scoped barrier only on linux")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("data"), 0644))

	m, err := Sync(dir)
	require.NoError(t, err)
	assert.Equal(t, ModeFilesystem, m)
}

func TestSyncMissingDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("fallback behaviour tested on linux")
	}

	m, err := Sync(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, ModeGlobal, m)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "filesystem", ModeFilesystem.String())
	assert.Equal(t, "global", ModeGlobal.String())
	assert.Equal(t, "none", ModeNone.String())
}
