package browser

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Cookie is one browser cookie loaded from the cookies file.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Secure bool
}

const cookieDomain = ".facebook.com"

// LoadCookiesFile reads a cookies file of whitespace-separated "name value"
// lines. Blank lines and lines starting with '#' are skipped. The file is
// treated as opaque credential material; values are never logged.
func LoadCookiesFile(path string) ([]Cookie, error) {
	f, err := os.Open(ExpandUser(path))
	if err != nil {
		return nil, fmt.Errorf("open cookies file: %w", err)
	}
	defer f.Close()

	var cookies []Cookie
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, " ")
		if !ok {
			name, value, ok = strings.Cut(line, "\t")
		}
		if !ok {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: cookieDomain,
			Path:   "/",
			Secure: true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookies file: %w", err)
	}
	return cookies, nil
}
