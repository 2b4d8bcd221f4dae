package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Timing holds request timing information.
type Timing struct {
	StartTime time.Time
	EndTime   time.Time
	Total     time.Duration
}

// Response is what a transport returns for one request.
type Response struct {
	id        string
	requestID string
	status    *Status
	headers   *Headers
	body      Body
	timing    Timing
}

// NewResponse creates a new response with the given parameters.
func NewResponse(requestID string, status *Status) *Response {
	return &Response{
		id:        uuid.New().String(),
		requestID: requestID,
		status:    status,
		headers:   NewHeaders(),
		body:      NewEmptyBody(),
	}
}

func (r *Response) ID() string {
	return r.id
}

func (r *Response) RequestID() string {
	return r.requestID
}

func (r *Response) Status() *Status {
	return r.status
}

func (r *Response) Headers() *Headers {
	return r.headers
}

func (r *Response) Body() Body {
	return r.body
}

func (r *Response) Timing() Timing {
	return r.timing
}

// WithHeaders sets the response headers and returns the response for chaining.
func (r *Response) WithHeaders(h *Headers) *Response {
	r.headers = h
	return r
}

// WithBody sets the response body and returns the response for chaining.
func (r *Response) WithBody(b Body) *Response {
	r.body = b
	return r
}

// WithTiming sets the timing info and returns the response for chaining.
func (r *Response) WithTiming(t Timing) *Response {
	r.timing = t
	return r
}

// Result is the normalized outcome handed to the presentation layer.
// On failure StatusInfo carries the error message, HeaderInfo is empty and
// Data carries the cause trace.
type Result struct {
	RequestID  string
	StatusCode int
	StatusInfo string
	HeaderInfo string
	Data       string
	Duration   time.Duration
	Err        error
}

// NewResult converts a transport response into a success result.
func NewResult(resp *Response) Result {
	return Result{
		RequestID:  resp.RequestID(),
		StatusCode: resp.Status().Code(),
		StatusInfo: resp.Status().Line(),
		HeaderInfo: resp.Headers().Lines(),
		Data:       resp.Body().String(),
		Duration:   resp.Timing().Total,
	}
}

// NewFailure converts an execution error into a failure result.
func NewFailure(requestID string, err error) Result {
	return Result{
		RequestID:  requestID,
		StatusInfo: err.Error(),
		Data:       Trace(err),
		Err:        err,
	}
}

// Failed reports whether the result represents an execution error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// PrettyData returns Data indented as JSON when it parses as JSON.
func (r Result) PrettyData() string {
	return PrettyJSON(r.Data)
}

// Trace renders the chain of wrapped errors, outermost first, one per line.
func Trace(err error) string {
	var lines []string
	depth := 0
	for err != nil {
		prefix := "error"
		if depth > 0 {
			prefix = "caused by"
		}
		lines = append(lines, fmt.Sprintf("%s: %T: %s", prefix, err, err.Error()))
		depth++

		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				lines = append(lines, "caused by: "+inner.Error())
			}
			break
		}
		err = errors.Unwrap(err)
	}
	return strings.Join(lines, "\n")
}
