package browser

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandUser resolves a leading "~" or "~/" against the current user's home
// directory, so configured paths like "~/.cache/fbscraper/browsers" point at
// the real cache instead of a literal "~" directory. Paths without the prefix,
// "~user" forms, and paths on hosts with no resolvable home directory are
// returned unchanged.
func ExpandUser(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
