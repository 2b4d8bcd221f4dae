package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"empty", "", false},
		{"http scheme", "http://a", true},
		{"https scheme", "https://x.test/a", true},
		{"other scheme", "ftp://x", true},
		{"http prefix without separator", "httpbin", true},
		{"short schemeless", "x.test/a", false},
		{"ten chars schemeless", "abcdefghij", false},
		{"eleven chars schemeless", "example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidURL)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.Equal(t, "url", verr.Field)
		})
	}
}

func TestRequestDescriptor(t *testing.T) {
	t.Run("normalizes method", func(t *testing.T) {
		d := NewRequestDescriptor("post", "https://x.test")
		assert.Equal(t, "POST", d.Method)
		assert.True(t, d.IsPost())
		assert.NotEmpty(t, d.ID)
	})

	t.Run("rejects empty method", func(t *testing.T) {
		d := NewRequestDescriptor("", "https://x.test")
		assert.ErrorIs(t, d.Validate(), ErrInvalidMethod)
	})

	t.Run("derived views follow rows", func(t *testing.T) {
		d := NewRequestDescriptor("POST", "https://x.test")
		d.Rows = []ParamRow{
			{Key: "x", Value: "1", IsEnable: true},
			{Key: "file", Value: "/tmp/a.txt", IsFile: true, IsEnable: true},
		}
		assert.Equal(t, map[string]string{"x": "1"}, d.EnabledKeyValueMap())
		row, ok := d.UploadRow()
		require.True(t, ok)
		assert.Equal(t, "file", row.Key)
		assert.Len(t, d.EnabledFields(), 1)
	})

	t.Run("Clone is deep", func(t *testing.T) {
		d := NewRequestDescriptor("GET", "https://x.test")
		d.Headers.Add("A", "1")
		d.Rows = []ParamRow{{Key: "k", Value: "v", IsEnable: true}}

		c := d.Clone()
		c.Headers.Add("B", "2")
		c.Rows[0].Value = "changed"

		assert.Equal(t, 1, d.Headers.Len())
		assert.Equal(t, "v", d.Rows[0].Value)
	})
}

func TestIsKnownMethod(t *testing.T) {
	for _, m := range Methods {
		assert.True(t, IsKnownMethod(m))
	}
	assert.True(t, IsKnownMethod("get"))
	assert.False(t, IsKnownMethod("FETCH"))
}

func TestAppendQuery(t *testing.T) {
	tests := []struct {
		url, query, want string
	}{
		{"https://x.test/a", "", "https://x.test/a"},
		{"https://x.test/a", "k=v", "https://x.test/a?k=v"},
		{"https://x.test/a?x=1", "k=v", "https://x.test/a?x=1&k=v"},
		{"https://x.test/a?", "k=v", "https://x.test/a?k=v"},
		{"https://x.test/a#frag", "k=v", "https://x.test/a?k=v#frag"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AppendQuery(tt.url, tt.query))
	}
}

func TestRequestDescriptor_QueryURL(t *testing.T) {
	d := NewRequestDescriptor("GET", "https://x.test/search")
	d.Rows = []ParamRow{
		{Key: "q", Value: "go lang", IsEnable: true},
		{Key: "off", Value: "1", IsEnable: false},
		{Key: "page", Value: "2", IsEnable: true},
	}
	assert.Equal(t, "https://x.test/search?q=go+lang&page=2", d.QueryURL())
}
