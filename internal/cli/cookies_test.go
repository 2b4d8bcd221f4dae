package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/artpar/apipost/internal/cookies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listCookies(t *testing.T, args ...string) []cookies.Cookie {
	t.Helper()
	out, err := runRoot(t, append([]string{"cookies", "list", "--json"}, args...)...)
	require.NoError(t, err)
	var list []cookies.Cookie
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	return list
}

func cookieServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3cret", Path: "/", MaxAge: 3600})
			return
		}
		c, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("hello " + c.Value))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCookiesCommand(t *testing.T) {
	isolate(t)
	server := cookieServer(t)

	_, err := runRoot(t, "send", "GET", server.URL+"/login")
	require.NoError(t, err)

	t.Run("cookies survive between runs", func(t *testing.T) {
		out, err := runRoot(t, "send", "GET", server.URL+"/me")
		require.NoError(t, err)
		assert.Contains(t, out, "hello s3cret")
	})

	t.Run("list", func(t *testing.T) {
		list := listCookies(t)
		require.Len(t, list, 1)
		assert.Equal(t, "session", list[0].Name)
		assert.Equal(t, "127.0.0.1", list[0].Domain)
		assert.False(t, list[0].Session())

		assert.Empty(t, listCookies(t, "--domain", "other.test"))

		out, err := runRoot(t, "cookies", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "DOMAIN")
		assert.Contains(t, out, "session")
	})

	t.Run("prune keeps live cookies", func(t *testing.T) {
		out, err := runRoot(t, "cookies", "prune")
		require.NoError(t, err)
		assert.Contains(t, out, "Pruned 0 expired cookies")
	})

	t.Run("clear domain", func(t *testing.T) {
		out, err := runRoot(t, "cookies", "clear", "127.0.0.1")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted 1 cookies for 127.0.0.1")

		out, err = runRoot(t, "send", "GET", server.URL+"/me")
		require.NoError(t, err)
		assert.Contains(t, out, "401")
	})

	t.Run("clear all", func(t *testing.T) {
		_, err := runRoot(t, "send", "GET", server.URL+"/login")
		require.NoError(t, err)
		require.Len(t, listCookies(t), 1)

		out, err := runRoot(t, "cookies", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Cookies cleared")
		assert.Empty(t, listCookies(t))

		out, err = runRoot(t, "cookies", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No cookies")
	})
}

func TestCookiesDisabled(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(heredoc.Doc(`
		cookies = false
	`)), 0o644))
	server := cookieServer(t)

	_, err := runRoot(t, "send", "GET", server.URL+"/login")
	require.NoError(t, err)

	out, err := runRoot(t, "send", "GET", server.URL+"/me")
	require.NoError(t, err)
	assert.Contains(t, out, "401")
	assert.Empty(t, listCookies(t))
}
