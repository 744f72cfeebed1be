package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadCookiesFile parses name/value lines and skips comments and blanks.
func TestLoadCookiesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := `# session cookies exported from the browser
c_user 100012345

xs abc%3Adef
datr	tabbed-value
malformed-line-without-value
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cookies, err := LoadCookiesFile(path)
	require.NoError(t, err)
	require.Len(t, cookies, 3)

	assert.Equal(t, "c_user", cookies[0].Name)
	assert.Equal(t, "100012345", cookies[0].Value)
	assert.Equal(t, ".facebook.com", cookies[0].Domain)
	assert.Equal(t, "/", cookies[0].Path)
	assert.True(t, cookies[0].Secure)

	assert.Equal(t, "xs", cookies[1].Name)
	assert.Equal(t, "abc%3Adef", cookies[1].Value)

	assert.Equal(t, "datr", cookies[2].Name)
	assert.Equal(t, "tabbed-value", cookies[2].Value)
}

// TestLoadCookiesFileMissing surfaces open errors to the caller.
func TestLoadCookiesFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadCookiesFile(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}
