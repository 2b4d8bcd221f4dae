package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Request is a fully prepared outgoing request, ready for a transport.
type Request struct {
	id      string
	method  string
	url     string
	headers *Headers
	body    Body
}

// NewRequest creates a new request with the given method and URL.
func NewRequest(method, rawURL string) (*Request, error) {
	if method == "" {
		return nil, errors.New("method cannot be empty")
	}
	if rawURL == "" {
		return nil, errors.New("url cannot be empty")
	}

	return &Request{
		id:      uuid.New().String(),
		method:  method,
		url:     rawURL,
		headers: NewHeaders(),
		body:    NewEmptyBody(),
	}, nil
}

func (r *Request) ID() string {
	return r.id
}

func (r *Request) Method() string {
	return r.method
}

func (r *Request) URL() string {
	return r.url
}

func (r *Request) Headers() *Headers {
	return r.headers
}

func (r *Request) Body() Body {
	return r.body
}

func (r *Request) SetBody(body Body) {
	r.body = body
}

// SetURL replaces the target URL.
func (r *Request) SetURL(rawURL string) {
	r.url = rawURL
}

// SetHeaders replaces the header list with a copy of h.
func (r *Request) SetHeaders(h *Headers) {
	r.headers = h.Clone()
}

// Body represents a request or response body.
type Body interface {
	Type() string
	ContentType() string
	IsEmpty() bool
	Size() int64
	Bytes() []byte
	String() string
	Reader() io.Reader
}

// emptyBody represents an empty body.
type emptyBody struct{}

// NewEmptyBody creates an empty body.
func NewEmptyBody() Body {
	return &emptyBody{}
}

func (b *emptyBody) Type() string        { return "empty" }
func (b *emptyBody) ContentType() string { return "" }
func (b *emptyBody) IsEmpty() bool       { return true }
func (b *emptyBody) Size() int64         { return 0 }
func (b *emptyBody) Bytes() []byte       { return nil }
func (b *emptyBody) String() string      { return "" }
func (b *emptyBody) Reader() io.Reader   { return bytes.NewReader(nil) }

// NewJSONBody encodes fields as a JSON object. Encoding a string map
// cannot fail, so the error is only reported for completeness.
func NewJSONBody(fields map[string]string) (Body, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &rawBody{kind: "json", content: encoded, contentType: "application/json"}, nil
}

// NewFormBody encodes fields as application/x-www-form-urlencoded.
// Keys are written in the order given; a later duplicate replaces an
// earlier value, matching EnabledKeyValueMap.
func NewFormBody(fields []ParamRow) Body {
	return &rawBody{
		kind:        "form",
		content:     []byte(EncodeForm(fields)),
		contentType: "application/x-www-form-urlencoded",
	}
}

// EncodeForm urlencodes fields preserving first-seen key order; for a
// repeated key the last value wins.
func EncodeForm(fields []ParamRow) string {
	var sb strings.Builder
	for i, f := range FoldFields(fields) {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}
	return sb.String()
}

// rawBody represents a byte body with a fixed content type.
type rawBody struct {
	kind        string
	content     []byte
	contentType string
}

// NewRawBody creates a raw body with the given content and content type.
func NewRawBody(content []byte, contentType string) Body {
	return &rawBody{
		kind:        "raw",
		content:     content,
		contentType: contentType,
	}
}

// NewMultipartBody wraps an already encoded multipart payload.
func NewMultipartBody(content []byte, contentType string) Body {
	return &rawBody{
		kind:        "multipart",
		content:     content,
		contentType: contentType,
	}
}

func (b *rawBody) Type() string        { return b.kind }
func (b *rawBody) ContentType() string { return b.contentType }
func (b *rawBody) IsEmpty() bool       { return len(b.content) == 0 }
func (b *rawBody) Size() int64         { return int64(len(b.content)) }
func (b *rawBody) Bytes() []byte       { return b.content }
func (b *rawBody) String() string      { return string(b.content) }
func (b *rawBody) Reader() io.Reader   { return bytes.NewReader(b.content) }

// Status represents an HTTP status code and the protocol status line.
type Status struct {
	code  int
	proto string
	text  string
}

// NewStatus creates a new status. text is the status as reported by the
// transport, e.g. "200 OK".
func NewStatus(code int, proto, text string) *Status {
	return &Status{
		code:  code,
		proto: proto,
		text:  text,
	}
}

func (s *Status) Code() int     { return s.code }
func (s *Status) Proto() string { return s.proto }
func (s *Status) Text() string  { return s.text }

// Line renders the protocol status line, e.g. "HTTP/1.1 200 OK".
func (s *Status) Line() string {
	if s.proto == "" {
		return s.text
	}
	return s.proto + " " + s.text
}

func (s *Status) IsSuccess() bool {
	return s.code >= 200 && s.code < 300
}

func (s *Status) IsError() bool {
	return s.code >= 400
}
