package exporter

import (
	"fmt"
	"strings"

	"github.com/artpar/apipost/internal/core"
)

// CurlExporter renders request descriptors as curl commands.
type CurlExporter struct {
	Pretty bool // Use line continuations for readability
}

// NewCurlExporter creates a new curl exporter.
func NewCurlExporter() *CurlExporter {
	return &CurlExporter{}
}

// Export renders the descriptor as the request the executor would send.
func (c *CurlExporter) Export(d *core.RequestDescriptor) (string, error) {
	if d == nil {
		return "", ErrInvalidRequest
	}
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	headers := d.Headers.Clone()
	target := d.URL
	var bodyParts []string

	switch {
	case !d.IsPost():
		// The executor drops raw bodies on non-POST methods; curl keeps them
		// so an imported command formats back to the same request.
		target = d.QueryURL()
		if !d.BodyType.IsTableBacked() && d.RawBody != "" {
			bodyParts = append(bodyParts, "--data-raw", d.RawBody)
		}
	case d.BodyType.IsTableBacked():
		if upload, ok := d.UploadRow(); ok {
			for _, f := range d.EnabledFields() {
				bodyParts = append(bodyParts, "--form-string", f.Key+"="+f.Value)
			}
			bodyParts = append(bodyParts, "-F", upload.Key+"=@"+upload.Value)
			break
		}
		payload, err := tablePayload(d)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrExportFailed, err)
		}
		if !headers.Has("Content-Type") {
			headers.Add("Content-Type", d.BodyType.RawContentType())
		}
		bodyParts = append(bodyParts, "--data-raw", payload)
	default:
		if d.RawBody != "" {
			if ct := d.BodyType.RawContentType(); ct != "" && !headers.Has("Content-Type") {
				headers.Add("Content-Type", ct)
			}
			bodyParts = append(bodyParts, "--data-raw", d.RawBody)
		}
	}

	parts := []string{"curl"}

	// A body without -X would read back as POST, so GET is spelled out then.
	method := strings.ToUpper(d.Method)
	if method != "GET" || len(bodyParts) > 0 {
		parts = append(parts, "-X", method)
	}

	for _, f := range headers.Fields() {
		parts = append(parts, "-H", fmt.Sprintf("%s: %s", f.Key, f.Value))
	}
	parts = append(parts, bodyParts...)

	// URL (always last)
	parts = append(parts, target)

	if c.Pretty {
		return formatPrettyCurl(parts), nil
	}
	return formatInlineCurl(parts), nil
}

// FormatCurl renders d as a single-line curl command.
func FormatCurl(d *core.RequestDescriptor) (string, error) {
	return NewCurlExporter().Export(d)
}

func tablePayload(d *core.RequestDescriptor) (string, error) {
	if d.BodyType == core.BodyJSON {
		body, err := core.NewJSONBody(d.EnabledKeyValueMap())
		if err != nil {
			return "", err
		}
		return body.String(), nil
	}
	return core.EncodeForm(d.EnabledFields()), nil
}

func formatInlineCurl(parts []string) string {
	var result strings.Builder
	for i, part := range parts {
		if i > 0 {
			result.WriteString(" ")
		}
		result.WriteString(ShellQuote(part))
	}
	return result.String()
}

func formatPrettyCurl(parts []string) string {
	var result strings.Builder
	result.WriteString("curl")

	for i := 1; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "-") && i+1 < len(parts) {
			result.WriteString(" \\\n  ")
			result.WriteString(ShellQuote(part))
			result.WriteString(" ")
			i++
			result.WriteString(ShellQuote(parts[i]))
		} else {
			result.WriteString(" \\\n  ")
			result.WriteString(ShellQuote(part))
		}
	}

	return result.String()
}

// ShellQuote quotes s for a POSIX shell when it contains special characters.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}

	needsQuote := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '"' || r == '\'' ||
			r == '$' || r == '`' || r == '\\' || r == '!' || r == '*' ||
			r == '?' || r == '[' || r == ']' || r == '{' || r == '}' ||
			r == '(' || r == ')' || r == '<' || r == '>' || r == '|' ||
			r == '&' || r == ';' || r == '#' || r == '~' {
			needsQuote = true
			break
		}
	}

	if !needsQuote {
		return s
	}

	// Use single quotes and escape any single quotes in the string
	escaped := strings.ReplaceAll(s, "'", "'\"'\"'")
	return "'" + escaped + "'"
}
