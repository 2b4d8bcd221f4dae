package importer

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrParseError = errors.New("parse error")
	ErrNotCurl    = errors.New("not a curl command")
	ErrMissingURL = errors.New("no URL found in curl command")
)

// Format represents a supported import format.
type Format string

const (
	FormatCurl Format = "curl"
)

// Importer turns pasted text into editable request fields.
type Importer interface {
	// Name returns the name of this importer.
	Name() string

	// Format returns the format this importer handles.
	Format() Format

	// DetectFormat checks if the text matches this importer's format.
	DetectFormat(text string) bool

	// Parse decomposes the text into request fields.
	Parse(text string) (*ParseResult, error)
}

// Verify CurlParser implements Importer interface
var _ Importer = (*CurlParser)(nil)

var importers = []Importer{NewCurlParser()}

// Detect returns the importer that recognises text.
func Detect(text string) (Importer, error) {
	for _, imp := range importers {
		if imp.DetectFormat(text) {
			return imp, nil
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrParseError, ErrNotCurl)
}
