package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/apipost/internal/config"
	"github.com/artpar/apipost/internal/core"
	"github.com/artpar/apipost/internal/history"
	"github.com/artpar/apipost/internal/history/sqlite"
	"github.com/artpar/apipost/internal/interpolate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the settings directory at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	return dir
}

func historyCount(t *testing.T, dir string) int64 {
	t.Helper()
	store, err := sqlite.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count(context.Background(), history.QueryOptions{})
	require.NoError(t, err)
	return n
}

func TestSendCommand(t *testing.T) {
	t.Run("sends GET request", func(t *testing.T) {
		isolate(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "go", r.URL.Query().Get("q"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}))
		defer server.Close()

		out := &bytes.Buffer{}
		cmd := NewSendCommand()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"GET", server.URL, "-p", "q=go"})

		err := cmd.Execute()
		require.NoError(t, err)

		output := out.String()
		assert.Contains(t, output, "HTTP/1.1 200 OK")
		assert.Contains(t, output, "Content-Type: application/json")
		assert.Contains(t, output, `{"status":"ok"}`)
	})

	t.Run("sends POST raw body with headers", func(t *testing.T) {
		isolate(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "<a/>", string(body))
			assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		out := &bytes.Buffer{}
		cmd := NewSendCommand()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"POST", server.URL, "--type", "xml", "-d", "<a/>", "-H", "Authorization: Bearer token123"})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "201")
	})

	t.Run("method defaults to POST and rows become a form", func(t *testing.T) {
		isolate(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "1", r.PostForm.Get("a"))
			assert.Equal(t, "x y", r.PostForm.Get("b"))
		}))
		defer server.Close()

		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{server.URL, "-p", "a=1", "-p", "b=x y"})
		require.NoError(t, cmd.Execute())
	})

	t.Run("json table body", func(t *testing.T) {
		isolate(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var got map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, map[string]string{"name": "test"}, got)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Write([]byte(`{"id":1}`))
		}))
		defer server.Close()

		out := &bytes.Buffer{}
		cmd := NewSendCommand()
		cmd.SetOut(out)
		cmd.SetArgs([]string{server.URL, "--type", "json", "-p", "name=test", "--pretty"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "{\n  \"id\": 1\n}")
	})

	t.Run("file rows upload multipart", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "report.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b"), 0o644))

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "csv", r.FormValue("kind"))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, "report.csv", header.Filename)
			assert.Equal(t, "a,b", string(data))
		}))
		defer server.Close()

		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"POST", server.URL, "-F", "file=" + path, "-p", "kind=csv"})
		require.NoError(t, cmd.Execute())
	})

	t.Run("outputs JSON format", func(t *testing.T) {
		isolate(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"data":"value"}`))
		}))
		defer server.Close()

		out := &bytes.Buffer{}
		cmd := NewSendCommand()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"GET", server.URL, "--json"})
		require.NoError(t, cmd.Execute())

		var result resultOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, 202, result.Status)
		assert.Equal(t, "HTTP/1.1 202 Accepted", result.StatusInfo)
		assert.Equal(t, `{"data":"value"}`, result.Body)
		assert.NotEmpty(t, result.RequestID)
		assert.Empty(t, result.Error)
	})

	t.Run("error status is still a response", func(t *testing.T) {
		isolate(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "missing", http.StatusNotFound)
		}))
		defer server.Close()

		out := &bytes.Buffer{}
		cmd := NewSendCommand()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"GET", server.URL})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "404 Not Found")
	})

	t.Run("transport failure returns error with trace", func(t *testing.T) {
		isolate(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		out := &bytes.Buffer{}
		cmd := NewSendCommand()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"GET", url})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, out.String(), "caused by:")
	})

	t.Run("returns error for invalid URL", func(t *testing.T) {
		isolate(t)
		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"GET", "short"})

		err := cmd.Execute()
		assert.ErrorIs(t, err, core.ErrInvalidURL)
	})

	t.Run("rejects unknown body type", func(t *testing.T) {
		isolate(t)
		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"https://api.example.com", "--type", "yaml"})

		err := cmd.Execute()
		assert.ErrorIs(t, err, core.ErrUnknownBodyType)
	})

	t.Run("rejects malformed rows", func(t *testing.T) {
		isolate(t)
		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"https://api.example.com", "-p", "novalue"})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected key=value")
	})

	t.Run("supports all HTTP methods", func(t *testing.T) {
		isolate(t)
		methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
		for _, method := range methods {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, method, r.Method)
			}))

			cmd := NewSendCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs([]string{strings.ToLower(method), server.URL})
			require.NoError(t, cmd.Execute(), method)
			server.Close()
		}
	})
}

func TestSendCommand_Variables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path + " " + r.Header.Get("Authorization")))
	}))
	defer server.Close()

	t.Run("expands flags and settings", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte("[variables]\ntoken = \"abc\"\n"), 0o644))

		out := &bytes.Buffer{}
		cmd := NewSendCommand()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"GET", "{{base}}/users", "--var", "base=" + server.URL, "-H", "Authorization: Bearer {{token}}"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "/users Bearer abc")
	})

	t.Run("undefined variable fails before sending", func(t *testing.T) {
		dir := isolate(t)
		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"GET", server.URL + "/{{missing}}"})

		err := cmd.Execute()
		assert.ErrorIs(t, err, interpolate.ErrUndefined)
		assert.Equal(t, int64(0), historyCount(t, dir))
	})

	t.Run("rejects malformed variables", func(t *testing.T) {
		isolate(t)
		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"GET", server.URL, "--var", "novalue"})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected name=value")
	})
}

func TestMergeVars(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	merged := mergeVars(base, map[string]string{"b": "3"})
	assert.Equal(t, map[string]string{"a": "1", "b": "3"}, merged)
	assert.Equal(t, "2", base["b"])
	assert.Equal(t, base, mergeVars(base, nil))
}

func TestSendCommand_History(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	t.Run("records the request", func(t *testing.T) {
		dir := isolate(t)
		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"GET", server.URL})
		require.NoError(t, cmd.Execute())

		assert.Equal(t, int64(1), historyCount(t, dir))
	})

	t.Run("no-history skips recording", func(t *testing.T) {
		dir := isolate(t)
		cmd := NewSendCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"GET", server.URL, "--no-history"})
		require.NoError(t, cmd.Execute())

		assert.Equal(t, int64(0), historyCount(t, dir))
	})
}

func TestParseRows(t *testing.T) {
	t.Run("splits on the first equals sign", func(t *testing.T) {
		rows, err := parseRows([]string{"a=1", "b=x=y", "c="}, false)
		require.NoError(t, err)
		assert.Equal(t, []core.ParamRow{
			{Key: "a", Value: "1", IsEnable: true},
			{Key: "b", Value: "x=y", IsEnable: true},
			{Key: "c", Value: "", IsEnable: true},
		}, rows)
	})

	t.Run("marks file rows", func(t *testing.T) {
		rows, err := parseRows([]string{"f=/tmp/a"}, true)
		require.NoError(t, err)
		assert.True(t, rows[0].IsFile)
	})

	t.Run("rejects empty keys", func(t *testing.T) {
		_, err := parseRows([]string{"=1"}, false)
		assert.Error(t, err)
	})
}
