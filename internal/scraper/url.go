package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var postIDPattern = regexp.MustCompile(`/posts/([^/?]+)|/permalink/([^/?]+)`)

// ExtractPostID normalizes a raw post reference into a bare post ID.
// Accepts either a bare ID or a full Facebook URL; for URLs the ID is taken
// from the /posts/ or /permalink/ segment, falling back to the last path part.
func ExtractPostID(raw string) (string, error) {
	postID := strings.TrimSpace(raw)
	if postID == "" {
		return "", errors.New("post id is required")
	}
	if !strings.Contains(postID, "facebook.com") && !strings.Contains(postID, "http") {
		return postID, nil
	}
	if m := postIDPattern.FindStringSubmatch(postID); m != nil {
		if m[1] != "" {
			return m[1], nil
		}
		return m[2], nil
	}
	parts := strings.Split(postID, "/")
	last := parts[len(parts)-1]
	last, _, _ = strings.Cut(last, "?")
	if last == "" {
		return "", fmt.Errorf("cannot extract post id from %q", raw)
	}
	return last, nil
}

// PostURL assembles the canonical desktop URL for an account's post.
func PostURL(accountName, postID string) (string, error) {
	account := strings.ReplaceAll(strings.TrimSpace(accountName), "@", "")
	if account == "" {
		return "", errors.New("account name is required")
	}
	id, err := ExtractPostID(postID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://www.facebook.com/%s/posts/%s", account, id), nil
}

// MobileURL rewrites a desktop Facebook URL to the mobile host, whose markup
// loads comments without requiring interaction with the desktop overlay UI.
func MobileURL(url string) string {
	return strings.Replace(url, "www.facebook.com", "m.facebook.com", 1)
}
