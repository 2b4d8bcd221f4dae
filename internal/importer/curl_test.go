package importer

import (
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/artpar/apipost/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurlParser_Name(t *testing.T) {
	p := NewCurlParser()
	assert.Equal(t, "curl command", p.Name())
	assert.Equal(t, FormatCurl, p.Format())
}

func TestDetect(t *testing.T) {
	imp, err := Detect("$ curl https://example.com")
	require.NoError(t, err)
	assert.Equal(t, FormatCurl, imp.Format())

	_, err = Detect("http GET https://example.com")
	assert.ErrorIs(t, err, ErrNotCurl)
	assert.ErrorIs(t, err, ErrParseError)
}

func TestCurlParser_DetectFormat(t *testing.T) {
	p := NewCurlParser()

	t.Run("detects curl command", func(t *testing.T) {
		assert.True(t, p.DetectFormat("curl https://example.com"))
		assert.True(t, p.DetectFormat("  curl -X GET https://example.com"))
		assert.True(t, p.DetectFormat("$ curl https://example.com"))
		assert.True(t, p.DetectFormat("/usr/bin/curl https://example.com"))
	})

	t.Run("rejects non-curl", func(t *testing.T) {
		assert.False(t, p.DetectFormat("wget https://example.com"))
		assert.False(t, p.DetectFormat(`{"openapi": "3.0.0"}`))
		assert.False(t, p.DetectFormat(""))
	})
}

func TestParse_SimpleGET(t *testing.T) {
	result, err := Parse(`curl https://x.test/a`)
	require.NoError(t, err)

	assert.Equal(t, "GET", result.Method)
	assert.Equal(t, "https://x.test/a", result.URL)
	assert.Equal(t, "", result.RawBody)
	assert.Equal(t, 0, result.Headers.Len())
}

func TestParse_RepeatedHeadersAndLastDataWins(t *testing.T) {
	result, err := Parse(`curl 'https://x.test/a' -X POST -H 'A: 1' -H 'A: 2' -d 'body1' -d 'body2'`)
	require.NoError(t, err)

	assert.Equal(t, "POST", result.Method)
	assert.Equal(t, "https://x.test/a", result.URL)
	assert.Equal(t, []core.HeaderField{{Key: "A", Value: "1"}, {Key: "A", Value: "2"}}, result.Headers.Fields())
	assert.Equal(t, "body2", result.RawBody)
}

func TestParse_Method(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{"POST with -X", `curl -X POST https://api.example.com/users`, "POST"},
		{"DELETE with --request", `curl --request DELETE https://api.example.com/users/1`, "DELETE"},
		{"attached short value", `curl -XPUT https://api.example.com/users/1`, "PUT"},
		{"attached long value", `curl --request=patch https://api.example.com/users/1`, "PATCH"},
		{"data implies POST", `curl -d 'a=1' https://api.example.com`, "POST"},
		{"explicit method overrides data default", `curl -X PUT -d '{}' https://api.example.com`, "PUT"},
		{"explicit GET with data stays GET", `curl -X GET --data x https://api.example.com`, "GET"},
		{"HEAD with -I", `curl -I https://api.example.com/`, "HEAD"},
		{"dangling -X keeps default", `curl https://api.example.com -X`, "GET"},
		{"dangling -X with data", `curl https://api.example.com -d x -X`, "POST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Method)
		})
	}
}

func TestParse_Headers(t *testing.T) {
	t.Run("value is left-trimmed and split on first colon", func(t *testing.T) {
		result, err := Parse(`curl -H "X-Time:   12:30:00" https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, "12:30:00", result.Headers.Get("X-Time"))
	})

	t.Run("long form and attached form", func(t *testing.T) {
		result, err := Parse(`curl --header "X-Custom: value" -H'X-Other: 2' https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, "value", result.Headers.Get("X-Custom"))
		assert.Equal(t, "2", result.Headers.Get("X-Other"))
	})

	t.Run("malformed header is skipped", func(t *testing.T) {
		result, err := Parse(`curl -H "no colon here" -H ": empty key" -H "Ok: yes" https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, []core.HeaderField{{Key: "Ok", Value: "yes"}}, result.Headers.Fields())
	})

	t.Run("header flags map to headers", func(t *testing.T) {
		result, err := Parse(`curl -A agent/1.0 -e https://ref.test -b 'a=1; b=2' --compressed https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, "agent/1.0", result.Headers.Get("User-Agent"))
		assert.Equal(t, "https://ref.test", result.Headers.Get("Referer"))
		assert.Equal(t, "a=1; b=2", result.Headers.Get("Cookie"))
		assert.Equal(t, "gzip, deflate, br", result.Headers.Get("Accept-Encoding"))
	})

	t.Run("basic auth becomes a header", func(t *testing.T) {
		result, err := Parse(`curl -u user:pass https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, "Basic dXNlcjpwYXNz", result.Headers.Get("Authorization"))
	})

	t.Run("HeaderText renders editor lines", func(t *testing.T) {
		result, err := Parse(`curl -H 'A: 1' -H 'B: 2' https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, "A: 1\nB: 2", result.HeaderText())
	})
}

func TestParse_Data(t *testing.T) {
	t.Run("json body keeps inner spacing", func(t *testing.T) {
		result, err := Parse(`curl -d '{"name":  "John Doe"}' https://api.example.com/users`)
		require.NoError(t, err)
		assert.Equal(t, `{"name":  "John Doe"}`, result.RawBody)
	})

	t.Run("--data-raw and --data-binary", func(t *testing.T) {
		result, err := Parse(`curl --data-raw 'first' --data-binary 'second' https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, "second", result.RawBody)
	})

	t.Run("--json sets content-type and accept", func(t *testing.T) {
		result, err := Parse(`curl --json '{"key":"value"}' https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, `{"key":"value"}`, result.RawBody)
		assert.Equal(t, "application/json", result.Headers.Get("Content-Type"))
		assert.Equal(t, "application/json", result.Headers.Get("Accept"))
		assert.Equal(t, "POST", result.Method)
	})

	t.Run("--data-urlencode encodes content", func(t *testing.T) {
		result, err := Parse(`curl --data-urlencode 'q=hello world' https://api.example.com`)
		require.NoError(t, err)
		assert.Equal(t, "q=hello+world", result.RawBody)
	})

	t.Run("-G moves data into the query", func(t *testing.T) {
		result, err := Parse(`curl -G -d 'a=1' https://api.example.com/search?x=2`)
		require.NoError(t, err)
		assert.Equal(t, "GET", result.Method)
		assert.Equal(t, "https://api.example.com/search?x=2&a=1", result.URL)
		assert.Equal(t, "", result.RawBody)
	})

	t.Run("ANSI-C quoted body", func(t *testing.T) {
		result, err := Parse(`curl $'{"a":"it\'s"}\n' https://api.example.com -d $'line1\nline2'`)
		require.NoError(t, err)
		assert.Equal(t, "line1\nline2", result.RawBody)
	})
}

func TestParse_LineContinuations(t *testing.T) {
	cmd := heredoc.Doc(`
		curl 'https://api.example.com/v1/items' \
		  -X POST \
		  -H 'Content-Type: application/json' \
		  -H 'Accept: */*' \
		  --data-raw '{"name":"widget",
		  "qty":2}' \
		  --compressed
	`)

	result, err := Parse(cmd)
	require.NoError(t, err)

	assert.Equal(t, "POST", result.Method)
	assert.Equal(t, "https://api.example.com/v1/items", result.URL)
	assert.Equal(t, "application/json", result.Headers.Get("Content-Type"))
	assert.Equal(t, "*/*", result.Headers.Get("Accept"))
	assert.Equal(t, "{\"name\":\"widget\",\n  \"qty\":2}", result.RawBody)
}

func TestParse_ShortFlagClusters(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		method string
		url    string
		body   string
	}{
		{"attached method", `curl -sXPOST https://x.test/a`, "POST", "https://x.test/a", ""},
		{"method in next token", `curl -sSX PUT https://x.test/b`, "PUT", "https://x.test/b", ""},
		{"attached data", `curl -sda=1 https://x.test/c`, "POST", "https://x.test/c", "a=1"},
		{"head with get", `curl -sIG https://x.test/d`, "HEAD", "https://x.test/d", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.method, result.Method)
			assert.Equal(t, tt.url, result.URL)
			assert.Equal(t, tt.body, result.RawBody)
		})
	}
}

func TestParse_Tolerance(t *testing.T) {
	t.Run("unknown flags are ignored", func(t *testing.T) {
		result, err := Parse(`curl --some-new-flag -sSL -k https://api.example.com/a -o out.json -w '%{http_code}'`)
		require.NoError(t, err)
		assert.Equal(t, "GET", result.Method)
		assert.Equal(t, "https://api.example.com/a", result.URL)
	})

	t.Run("URL after flag values", func(t *testing.T) {
		result, err := Parse(`curl -H 'A: 1' --max-time 10 'https://api.example.com/b'`)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/b", result.URL)
	})

	t.Run("--url flag", func(t *testing.T) {
		result, err := Parse(`curl --url https://api.example.com/c`)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/c", result.URL)
	})

	t.Run("schemeless bare word yields to a real URL", func(t *testing.T) {
		result, err := Parse(`curl --unknown-opt value https://api.example.com/d`)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/d", result.URL)
	})

	t.Run("shell prompt prefix", func(t *testing.T) {
		result, err := Parse(`$ curl https://api.example.com/e`)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/e", result.URL)
	})

	t.Run("unterminated quote runs to end", func(t *testing.T) {
		result, err := Parse(`curl https://api.example.com/f -d '{"a":1`)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1`, result.RawBody)
	})
}

func TestParse_Errors(t *testing.T) {
	t.Run("missing URL is fatal", func(t *testing.T) {
		_, err := Parse(`curl -X POST -H 'A: 1'`)
		assert.ErrorIs(t, err, ErrMissingURL)
		assert.ErrorIs(t, err, ErrParseError)
	})

	t.Run("not a curl command", func(t *testing.T) {
		_, err := Parse(`wget https://example.com`)
		assert.ErrorIs(t, err, ErrNotCurl)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Parse("   ")
		assert.ErrorIs(t, err, ErrNotCurl)
	})
}

func TestParseResult_Descriptor(t *testing.T) {
	result, err := Parse(`curl -X PUT -H 'A: 1' -d 'x' https://api.example.com`)
	require.NoError(t, err)

	d := result.Descriptor()
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "PUT", d.Method)
	assert.Equal(t, "https://api.example.com", d.URL)
	assert.Equal(t, core.BodyRaw, d.BodyType)
	assert.Equal(t, "x", d.RawBody)
	assert.Equal(t, "1", d.Headers.Get("A"))

	d.Headers.Add("B", "2")
	assert.Equal(t, 1, result.Headers.Len())
}

func TestParse_Form(t *testing.T) {
	result, err := Parse(`curl -F 'x=1' -F 'file=@/tmp/a.txt;type=text/plain' --form-string 'at=@literal' https://api.example.com/upload`)
	require.NoError(t, err)

	assert.Equal(t, "POST", result.Method)
	assert.Equal(t, []core.ParamRow{
		{Key: "x", Value: "1", IsEnable: true},
		{Key: "file", Value: "/tmp/a.txt", IsFile: true, IsEnable: true},
		{Key: "at", Value: "@literal", IsEnable: true},
	}, result.Form)

	d := result.Descriptor()
	assert.Equal(t, core.BodyFormData, d.BodyType)
	row, ok := d.UploadRow()
	require.True(t, ok)
	assert.Equal(t, "file", row.Key)
}
