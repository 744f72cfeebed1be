package browser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNoBrowser is returned when no usable browser executable can be found.
var ErrNoBrowser = errors.New("no usable browser executable found")

// channelExecutables maps a browser channel name to the executable names it is
// installed under, in preference order.
var channelExecutables = map[string][]string{
	"chrome":      {"google-chrome", "google-chrome-stable"},
	"chrome-beta": {"google-chrome-beta"},
	"chrome-dev":  {"google-chrome-unstable"},
	"chromium":    {"chromium", "chromium-browser"},
	"msedge":      {"microsoft-edge", "microsoft-edge-stable"},
	"msedge-beta": {"microsoft-edge-beta"},
	"msedge-dev":  {"microsoft-edge-dev"},
}

// managedExecutableNames are the binary names produced by managed browser
// downloads inside a cache directory.
var managedExecutableNames = map[string]bool{
	"chrome":         true,
	"chromium":       true,
	"headless_shell": true,
}

// Locate resolves a browser executable path. Precedence follows the client
// contract: an explicit executable path wins over a channel, and a channel
// wins over enumeration of the managed cache directory.
func Locate(execPath, channel, cacheDir string) (string, error) {
	execPath = ExpandUser(execPath)
	cacheDir = ExpandUser(cacheDir)
	if execPath != "" {
		info, err := os.Stat(execPath)
		if err != nil {
			return "", fmt.Errorf("browser executable %s: %w", execPath, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("browser executable %s is a directory", execPath)
		}
		return execPath, nil
	}
	if channel != "" {
		path, err := locateChannel(channel)
		if err != nil {
			return "", err
		}
		return path, nil
	}
	if cacheDir != "" {
		if path, ok := enumerateCacheDir(cacheDir); ok {
			return path, nil
		}
	}
	// Last resort: any known channel present on the system.
	for _, ch := range []string{"chromium", "chrome", "msedge"} {
		if path, err := locateChannel(ch); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBrowser
}

func locateChannel(channel string) (string, error) {
	names, ok := channelExecutables[channel]
	if !ok {
		return "", fmt.Errorf("unknown browser channel %q", channel)
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("browser channel %q: %w", channel, ErrNoBrowser)
}

// enumerateCacheDir walks the managed browser cache directory looking for an
// executable browser binary. This is a real directory walk on purpose:
// checking the existence of a literal wildcard path never matches anything.
func enumerateCacheDir(cacheDir string) (string, bool) {
	var found string
	err := filepath.WalkDir(cacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == cacheDir {
				return err
			}
			return nil
		}
		if d.IsDir() || !managedExecutableNames[d.Name()] {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || info.Mode()&0o111 == 0 {
			return nil
		}
		found = path
		return fs.SkipAll
	})
	if err != nil || found == "" {
		return "", false
	}
	return found, true
}
