package core

import (
	"strings"
)

// HeaderField is a single header line.
type HeaderField struct {
	Key   string
	Value string
}

// Headers is an ordered header list. Lookups are case-insensitive, and
// every field keeps its position so repeated keys survive intact.
type Headers struct {
	fields []HeaderField
}

// NewHeaders creates an empty headers collection.
func NewHeaders() *Headers {
	return &Headers{}
}

// Add appends a field, keeping earlier fields with the same key.
func (h *Headers) Add(key, value string) {
	h.fields = append(h.fields, HeaderField{Key: key, Value: value})
}

// Set replaces every field named key with a single field at the position
// of the first one, or appends if the key is new.
func (h *Headers) Set(key, value string) {
	out := h.fields[:0]
	placed := false
	for _, f := range h.fields {
		if !strings.EqualFold(f.Key, key) {
			out = append(out, f)
			continue
		}
		if !placed {
			out = append(out, HeaderField{Key: key, Value: value})
			placed = true
		}
	}
	h.fields = out
	if !placed {
		h.Add(key, value)
	}
}

func (h *Headers) Get(key string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for key in insertion order.
func (h *Headers) Values(key string) []string {
	result := []string{}
	for _, f := range h.fields {
		if strings.EqualFold(f.Key, key) {
			result = append(result, f.Value)
		}
	}
	return result
}

func (h *Headers) Has(key string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Key, key) {
			return true
		}
	}
	return false
}

func (h *Headers) Del(key string) {
	out := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Key, key) {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Keys returns distinct keys in first-seen order, with their first casing.
func (h *Headers) Keys() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, f := range h.fields {
		lower := strings.ToLower(f.Key)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		keys = append(keys, f.Key)
	}
	return keys
}

// Fields returns a copy of every field in order.
func (h *Headers) Fields() []HeaderField {
	result := make([]HeaderField, len(h.fields))
	copy(result, h.fields)
	return result
}

func (h *Headers) Len() int {
	return len(h.fields)
}

func (h *Headers) Clone() *Headers {
	if h == nil {
		return NewHeaders()
	}
	return &Headers{fields: h.Fields()}
}

// Lines renders one "Key: Value" line per field, joined by newlines.
func (h *Headers) Lines() string {
	lines := make([]string, 0, len(h.fields))
	for _, f := range h.fields {
		lines = append(lines, f.Key+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

// ParseHeaderText parses header editor text: one "Key: Value" per line.
// Lines without a colon or with an empty key are skipped.
func ParseHeaderText(text string) *Headers {
	h := NewHeaders()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		h.Add(key, strings.TrimSpace(line[idx+1:]))
	}
	return h
}
