package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkotov/fbscraper/internal/browser"
)

func TestFetchHTML(t *testing.T) {
	t.Parallel()

	var gotCookie string
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><body>page body</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{
		UserAgent: "fbscraper-test",
		Timeout:   5 * time.Second,
		Cookies: []browser.Cookie{
			{Name: "c_user", Value: "100"},
			{Name: "xs", Value: "tok"},
		},
	})

	html, err := f.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "page body")
	assert.Equal(t, "c_user=100; xs=tok", gotCookie)
	assert.Equal(t, "fbscraper-test", gotAgent)
}

func TestFetchHTMLServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.FetchHTML(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestCookieHeaderEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, cookieHeader(nil))
	assert.Equal(t, "a=1", cookieHeader([]browser.Cookie{{Name: "a", Value: "1"}}))
}
