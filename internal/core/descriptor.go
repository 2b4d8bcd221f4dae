package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Causes of validation failures.
var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidMethod = errors.New("invalid method")
)

// minSchemelessURLLen is the shortest URL accepted without a scheme.
const minSchemelessURLLen = 11

// Methods lists the supported request methods in selector order.
var Methods = []string{
	"POST",
	"GET",
	"PUT",
	"PATCH",
	"HEAD",
	"DELETE",
	"OPTIONS",
	"TRACE",
	"CONNECT",
}

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// IsKnownMethod reports whether method is one of Methods, ignoring case.
func IsKnownMethod(method string) bool {
	for _, m := range Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// ValidationError reports a request that was rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateURL rejects empty input and short input without a scheme.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Reason: "url is empty", Err: ErrInvalidURL}
	}
	if HasScheme(rawURL) || len(rawURL) >= minSchemelessURLLen {
		return nil
	}
	return &ValidationError{
		Field:  "url",
		Reason: fmt.Sprintf("%q is not a legal url", rawURL),
		Err:    ErrInvalidURL,
	}
}

// HasScheme reports whether rawURL starts with "scheme://" or "http".
func HasScheme(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http") || schemePattern.MatchString(rawURL)
}

// RequestDescriptor is a snapshot of everything needed to execute one request.
type RequestDescriptor struct {
	ID       string
	Method   string
	URL      string
	Headers  *Headers
	BodyType BodyType
	Rows     []ParamRow
	RawBody  string
}

// NewRequestDescriptor creates a descriptor with a fresh ID and no headers.
func NewRequestDescriptor(method, rawURL string) *RequestDescriptor {
	return &RequestDescriptor{
		ID:      uuid.New().String(),
		Method:  strings.ToUpper(method),
		URL:     rawURL,
		Headers: NewHeaders(),
	}
}

// Validate checks the descriptor before dispatch.
func (d *RequestDescriptor) Validate() error {
	if strings.TrimSpace(d.Method) == "" {
		return &ValidationError{Field: "method", Reason: "method is empty", Err: ErrInvalidMethod}
	}
	return ValidateURL(d.URL)
}

func (d *RequestDescriptor) EnabledKeyValueMap() map[string]string {
	return EnabledKeyValueMap(d.Rows)
}

func (d *RequestDescriptor) EnabledFields() []ParamRow {
	return EnabledFields(d.Rows)
}

func (d *RequestDescriptor) UploadRow() (ParamRow, bool) {
	return UploadRow(d.Rows)
}

// IsPost reports whether the descriptor carries a body-bearing POST.
func (d *RequestDescriptor) IsPost() bool {
	return strings.EqualFold(d.Method, "POST")
}

// Clone returns a deep copy.
func (d *RequestDescriptor) Clone() *RequestDescriptor {
	clone := *d
	clone.Headers = d.Headers.Clone()
	clone.Rows = make([]ParamRow, len(d.Rows))
	copy(clone.Rows, d.Rows)
	return &clone
}

// AppendQuery adds an encoded query string to rawURL, keeping any existing
// query and fragment.
func AppendQuery(rawURL, query string) string {
	if query == "" {
		return rawURL
	}
	fragment := ""
	if idx := strings.Index(rawURL, "#"); idx >= 0 {
		rawURL, fragment = rawURL[:idx], rawURL[idx:]
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
		if strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&") {
			sep = ""
		}
	}
	return rawURL + sep + query + fragment
}

// QueryURL is the URL a non-POST request is sent to: the enabled table
// fields appended as query parameters.
func (d *RequestDescriptor) QueryURL() string {
	return AppendQuery(d.URL, EncodeForm(d.EnabledFields()))
}
