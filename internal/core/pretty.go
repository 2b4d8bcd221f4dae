package core

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PrettyJSON indents text when it is valid JSON and returns it unchanged
// otherwise.
func PrettyJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return text
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return text
	}
	return buf.String()
}
