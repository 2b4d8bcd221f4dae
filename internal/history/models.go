package history

import (
	"time"

	"github.com/artpar/apipost/internal/core"
)

// Entry is one executed request and its result.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Request data
	RequestID      string             `json:"request_id"`
	RequestMethod  string             `json:"request_method"`
	RequestURL     string             `json:"request_url"`
	RequestHeaders []core.HeaderField `json:"request_headers,omitempty"`
	BodyType       string             `json:"body_type"`
	RequestBody    string             `json:"request_body,omitempty"`
	Params         []core.ParamRow    `json:"params,omitempty"`

	// Result data
	ResponseStatus  int    `json:"response_status"`
	StatusInfo      string `json:"status_info,omitempty"`
	ResponseHeaders string `json:"response_headers,omitempty"`
	ResponseBody    string `json:"response_body,omitempty"`
	ResponseTime    int64  `json:"response_time"` // milliseconds
	ResponseSize    int64  `json:"response_size"` // bytes
	Error           string `json:"error,omitempty"`
}

// NewEntry records desc and the result it produced.
func NewEntry(desc *core.RequestDescriptor, result core.Result) Entry {
	entry := Entry{
		Timestamp:       time.Now(),
		RequestID:       desc.ID,
		RequestMethod:   desc.Method,
		RequestURL:      desc.URL,
		RequestHeaders:  desc.Headers.Fields(),
		BodyType:        desc.BodyType.String(),
		RequestBody:     desc.RawBody,
		Params:          desc.Rows,
		ResponseStatus:  result.StatusCode,
		StatusInfo:      result.StatusInfo,
		ResponseHeaders: result.HeaderInfo,
		ResponseBody:    result.Data,
		ResponseTime:    result.Duration.Milliseconds(),
		ResponseSize:    int64(len(result.Data)),
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	return entry
}

// Failed reports whether the request never produced a response.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Descriptor rebuilds the request so it can be sent again.
func (e Entry) Descriptor() *core.RequestDescriptor {
	d := core.NewRequestDescriptor(e.RequestMethod, e.RequestURL)
	for _, f := range e.RequestHeaders {
		d.Headers.Add(f.Key, f.Value)
	}
	if bt, err := core.ParseBodyType(e.BodyType); err == nil {
		d.BodyType = bt
	}
	d.RawBody = e.RequestBody
	d.Rows = append([]core.ParamRow(nil), e.Params...)
	return d
}

// QueryOptions specifies filters and pagination for history queries.
type QueryOptions struct {
	Method     string // Filter by HTTP method
	URLPattern string // SQL LIKE pattern on the URL
	StatusMin  int    // Minimum status code
	StatusMax  int    // Maximum status code
	FailedOnly bool   // Only entries that produced no response

	// Pagination
	Limit  int // Maximum number of results (0 = no limit)
	Offset int // Number of results to skip
}

// PruneResult contains the result of a prune operation.
type PruneResult struct {
	DeletedCount int64 `json:"deleted_count"`
	FreedBytes   int64 `json:"freed_bytes"`
}
