package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocateExplicitPath resolves an explicit executable and rejects
// directories and missing files.
func TestLocateExplicitPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := filepath.Join(dir, "my-chrome")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := Locate(bin, "", "")
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	_, err = Locate(dir, "", "")
	require.Error(t, err)

	_, err = Locate(filepath.Join(dir, "nope"), "", "")
	require.Error(t, err)
}

// TestLocateExplicitPathWinsOverChannel checks precedence: a resolvable
// executable path is used even when a channel is also configured.
func TestLocateExplicitPathWinsOverChannel(t *testing.T) {
	t.Parallel()

	bin := filepath.Join(t.TempDir(), "pinned-chromium")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := Locate(bin, "chrome", "")
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}

// TestLocateUnknownChannel rejects channel names outside the supported set.
func TestLocateUnknownChannel(t *testing.T) {
	t.Parallel()

	_, err := Locate("", "netscape", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown browser channel")
}

// TestEnumerateCacheDir finds a managed browser binary nested under versioned
// directories, ignoring non-executables and unrelated files.
func TestEnumerateCacheDir(t *testing.T) {
	t.Parallel()

	cache := t.TempDir()
	versioned := filepath.Join(cache, "chromium-1181", "chrome-linux")
	require.NoError(t, os.MkdirAll(versioned, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(versioned, "LICENSE"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(versioned, "chrome"), []byte("ELF"), 0o755))

	got, ok := enumerateCacheDir(cache)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(versioned, "chrome"), got)
}

// TestEnumerateCacheDirSkipsNonExecutable requires the executable bit.
func TestEnumerateCacheDirSkipsNonExecutable(t *testing.T) {
	t.Parallel()

	cache := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cache, "chromium"), []byte("ELF"), 0o644))

	_, ok := enumerateCacheDir(cache)
	assert.False(t, ok)
}

// TestEnumerateCacheDirMissing reports no match for an absent directory.
func TestEnumerateCacheDirMissing(t *testing.T) {
	t.Parallel()

	_, ok := enumerateCacheDir(filepath.Join(t.TempDir(), "browsers"))
	assert.False(t, ok)
}
