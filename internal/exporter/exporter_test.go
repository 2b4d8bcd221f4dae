package exporter

import (
	"testing"

	"github.com/artpar/apipost/internal/core"
	"github.com/artpar/apipost/internal/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurlExporter_Export(t *testing.T) {
	t.Run("simple GET", func(t *testing.T) {
		d := core.NewRequestDescriptor("GET", "https://api.example.com/users")
		out, err := FormatCurl(d)
		require.NoError(t, err)
		assert.Equal(t, "curl https://api.example.com/users", out)
	})

	t.Run("raw POST with headers in order", func(t *testing.T) {
		d := core.NewRequestDescriptor("POST", "https://api.example.com/users")
		d.Headers.Add("A", "1")
		d.Headers.Add("A", "2")
		d.RawBody = `{"name":"it's"}`

		out, err := FormatCurl(d)
		require.NoError(t, err)
		assert.Equal(t, `curl -X POST -H 'A: 1' -H 'A: 2' --data-raw '{"name":"it'"'"'s"}' https://api.example.com/users`, out)
	})

	t.Run("xml body adds content type", func(t *testing.T) {
		d := core.NewRequestDescriptor("POST", "https://api.example.com/x")
		d.BodyType = core.BodyXML
		d.RawBody = "<a/>"

		out, err := FormatCurl(d)
		require.NoError(t, err)
		assert.Contains(t, out, "-H 'Content-Type: application/xml'")
	})

	t.Run("json table body", func(t *testing.T) {
		d := core.NewRequestDescriptor("POST", "https://api.example.com/x")
		d.BodyType = core.BodyJSON
		d.Rows = []core.ParamRow{{Key: "a", Value: "1", IsEnable: true}}

		out, err := FormatCurl(d)
		require.NoError(t, err)
		assert.Equal(t, `curl -X POST -H 'Content-Type: application/json' --data-raw '{"a":"1"}' https://api.example.com/x`, out)
	})

	t.Run("form table body", func(t *testing.T) {
		d := core.NewRequestDescriptor("POST", "https://api.example.com/x")
		d.BodyType = core.BodyFormData
		d.Rows = []core.ParamRow{{Key: "a", Value: "1 2", IsEnable: true}}

		out, err := FormatCurl(d)
		require.NoError(t, err)
		assert.Contains(t, out, "--data-raw 'a=1+2'")
		assert.Contains(t, out, "Content-Type: application/x-www-form-urlencoded")
	})

	t.Run("upload row becomes -F", func(t *testing.T) {
		d := core.NewRequestDescriptor("POST", "https://api.example.com/upload")
		d.BodyType = core.BodyFormData
		d.Rows = []core.ParamRow{
			{Key: "x", Value: "1", IsEnable: true},
			{Key: "file", Value: "/tmp/a.txt", IsFile: true, IsEnable: true},
		}

		out, err := FormatCurl(d)
		require.NoError(t, err)
		assert.Equal(t, `curl -X POST --form-string x=1 -F file=@/tmp/a.txt https://api.example.com/upload`, out)
	})

	t.Run("non-POST table goes to query", func(t *testing.T) {
		d := core.NewRequestDescriptor("GET", "https://api.example.com/search")
		d.BodyType = core.BodyJSON
		d.Rows = []core.ParamRow{{Key: "q", Value: "go", IsEnable: true}}

		out, err := FormatCurl(d)
		require.NoError(t, err)
		assert.Equal(t, `curl 'https://api.example.com/search?q=go'`, out)
	})

	t.Run("pretty output uses continuations", func(t *testing.T) {
		d := core.NewRequestDescriptor("PUT", "https://api.example.com/x")
		d.Headers.Add("A", "1")
		exp := &CurlExporter{Pretty: true}

		out, err := exp.Export(d)
		require.NoError(t, err)
		assert.Equal(t, "curl \\\n  -X PUT \\\n  -H 'A: 1' \\\n  https://api.example.com/x", out)
	})

	t.Run("rejects nil and invalid descriptors", func(t *testing.T) {
		_, err := FormatCurl(nil)
		assert.ErrorIs(t, err, ErrInvalidRequest)

		_, err = FormatCurl(core.NewRequestDescriptor("GET", "x"))
		assert.ErrorIs(t, err, ErrExportFailed)
		assert.ErrorIs(t, err, core.ErrInvalidURL)
	})
}

func TestCurlRoundTrip(t *testing.T) {
	commands := []string{
		`curl https://x.test/a`,
		`curl 'https://x.test/a' -X POST -H 'A: 1' -H 'A: 2' -d 'body1' -d 'body2'`,
		`curl -X PUT -H 'Content-Type: application/json' --data-raw '{"a": [1, 2]}' https://x.test/items/1`,
		`curl -X GET -d 'odd' https://x.test/get-with-body`,
		`curl -I https://x.test/`,
		`curl -H 'Quote: it'"'"'s' -d $'multi\nline' https://x.test/q?x=1&y=2`,
		`curl -F 'x=1' -F 'file=@/tmp/a.txt' https://x.test/upload`,
	}

	for _, cmd := range commands {
		t.Run(cmd, func(t *testing.T) {
			first, err := importer.Parse(cmd)
			require.NoError(t, err)

			formatted, err := FormatCurl(first.Descriptor())
			require.NoError(t, err)

			second, err := importer.Parse(formatted)
			require.NoError(t, err, formatted)

			assert.Equal(t, first.Method, second.Method, formatted)
			assert.Equal(t, first.URL, second.URL, formatted)
			assert.Equal(t, first.Headers.Fields(), second.Headers.Fields(), formatted)
			assert.Equal(t, first.RawBody, second.RawBody, formatted)
			assert.ElementsMatch(t, first.Form, second.Form, formatted)
		})
	}
}
