package cli_test

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/apipost/e2e/harness"
	"github.com/artpar/apipost/e2e/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHarness(t *testing.T) *harness.E2EHarness {
	handlers := testserver.Handlers{}
	return harness.New(t, harness.Config{
		ServerHandlers: map[string]http.HandlerFunc{
			"/api/users": handlers.JSON(200, map[string]any{
				"message": "Hello from server",
				"users":   []string{"alice", "bob"},
			}),
			"/api/error":   handlers.Error(500, "Internal Server Error"),
			"/api/created": handlers.JSON(201, map[string]string{"id": "123"}),
			"/api/echo":    handlers.Echo(),
			"/api/form":    handlers.Form(),
			"/api/slow":    handlers.Delayed(2*time.Second, 200, "late"),
		},
		Timeout: 5 * time.Second,
	})
}

func TestCLI_SendCommand(t *testing.T) {
	h := newHarness(t)

	t.Run("GET request returns 200", func(t *testing.T) {
		result, err := h.CLI().Send("GET", h.ServerURL()+"/api/users")
		require.NoError(t, err)

		assert := harness.NewAssertions(t)
		assert.StatusLine(result.Stdout, 200)
		assert.OutputContains(result.Stdout, "Hello from server", "Content-Type: application/json")
		assert.NoError(result.Stdout)
	})

	t.Run("JSON output mode", func(t *testing.T) {
		result, err := h.CLI().SendJSON("GET", h.ServerURL()+"/api/created")
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Stdout), &out))
		assert.Equal(t, float64(201), out["status"])
		assert.Contains(t, out["body"], `"id":"123"`)
	})

	t.Run("POST raw body keeps its content type", func(t *testing.T) {
		_, err := h.CLI().SendWithBody("POST", h.ServerURL()+"/api/echo", "xml", "<a/>")
		require.NoError(t, err)

		last := h.Server().LastRequest()
		assert.Equal(t, "<a/>", string(last.Body))
		assert.Equal(t, "application/xml", last.Headers.Get("Content-Type"))
	})

	t.Run("custom headers", func(t *testing.T) {
		_, err := h.CLI().SendWithHeaders("GET", h.ServerURL()+"/api/echo", map[string]string{
			"Authorization": "Bearer token123",
			"X-Custom":      "custom-value",
		})
		require.NoError(t, err)

		last := h.Server().LastRequest()
		assert.Equal(t, "Bearer token123", last.Headers.Get("Authorization"))
		assert.Equal(t, "custom-value", last.Headers.Get("X-Custom"))
	})

	t.Run("query parameters on GET", func(t *testing.T) {
		_, err := h.CLI().Send("GET", h.ServerURL()+"/api/echo", "-p", "q=go", "-p", "page=2")
		require.NoError(t, err)
		assert.Equal(t, "q=go&page=2", h.Server().LastRequest().RawQuery)
	})

	t.Run("form rows and file uploads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "note.txt")
		require.NoError(t, os.WriteFile(path, []byte("hi"), 0o644))

		result, err := h.CLI().Send("POST", h.ServerURL()+"/api/form", "-p", "kind=note", "-F", "file="+path)
		require.NoError(t, err)
		harness.NewAssertions(t).OutputContains(result.Stdout, `"kind":"note"`, `"file":"note.txt:hi"`)
	})

	t.Run("server error is still a response", func(t *testing.T) {
		result, err := h.CLI().Send("GET", h.ServerURL()+"/api/error")
		require.NoError(t, err)
		harness.NewAssertions(t).StatusLine(result.Stdout, 500)
	})

	t.Run("timeout fails with a trace", func(t *testing.T) {
		result, err := h.CLI().Send("GET", h.ServerURL()+"/api/slow", "--timeout", "100ms")
		require.Error(t, err)
		harness.NewAssertions(t).Failure(result.Stdout)
	})
}

func TestCLI_SendCommand_AllMethods(t *testing.T) {
	h := newHarness(t)

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"} {
		t.Run(method, func(t *testing.T) {
			result, err := h.CLI().Send(method, h.ServerURL()+"/api/echo")
			require.NoError(t, err)
			harness.NewAssertions(t).StatusLine(result.Stdout, 200)
			assert.Equal(t, method, h.Server().LastRequest().Method)
		})
	}
}

func TestCLI_SendCommand_Errors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		h := harness.New(t, harness.Config{})
		result, err := h.CLI().Send("GET", "http://127.0.0.1:1/nonexistent")
		require.Error(t, err)
		harness.NewAssertions(t).Failure(result.Stdout)
	})

	t.Run("missing arguments", func(t *testing.T) {
		h := harness.New(t, harness.Config{})
		_, err := h.CLI().Run("send")
		assert.Error(t, err)
	})

	t.Run("invalid URL", func(t *testing.T) {
		h := harness.New(t, harness.Config{})
		_, err := h.CLI().Send("GET", "short")
		assert.Error(t, err)
	})
}

func TestCLI_CurlCommand(t *testing.T) {
	h := newHarness(t)

	t.Run("send", func(t *testing.T) {
		result, err := h.CLI().Curl("--send", "-X", "POST", h.ServerURL()+"/api/echo", "-H", "Content-Type: application/json", "-d", `{"a":1}`)
		require.NoError(t, err)
		harness.NewAssertions(t).StatusLine(result.Stdout, 200)
		assert.Equal(t, `{"a":1}`, string(h.Server().LastRequest().Body))
	})

	t.Run("export from stdin", func(t *testing.T) {
		result, err := h.CLI().WithStdin("curl -H 'A: 1' https://x.test/a").Curl("--export")
		require.NoError(t, err)
		assert.Equal(t, "curl -H 'A: 1' https://x.test/a\n", result.Stdout)
	})

	t.Run("missing URL", func(t *testing.T) {
		_, err := h.CLI().Curl("--send", "-X", "POST")
		assert.Error(t, err)
	})
}

func TestCLI_PrettyCommand(t *testing.T) {
	h := harness.New(t, harness.Config{})
	result, err := h.CLI().WithStdin(`{"a":[1,2]}`).Run("pretty")
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "\"a\": [\n")
}
