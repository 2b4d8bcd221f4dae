package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/apipost/internal/core"
)

// ErrExecution wraps failures that happen after validation: file access,
// encoding and transport errors.
var ErrExecution = errors.New("execution failed")

// Prepare builds the outgoing request for desc:
//
//   - POST with a table body and an upload row sends multipart form data
//   - POST with a JSON table sends the enabled rows as a JSON object
//   - POST with a form-data table sends the enabled rows urlencoded
//   - POST with a raw mode sends the raw text as is
//   - any other method sends the enabled rows as query parameters and no body
func Prepare(desc *core.RequestDescriptor) (*core.Request, error) {
	if !desc.IsPost() {
		return prepareQuery(desc)
	}
	if desc.BodyType.IsTableBacked() {
		if upload, ok := desc.UploadRow(); ok {
			return prepareMultipart(desc, upload)
		}
	}

	switch desc.BodyType {
	case core.BodyJSON:
		return prepareJSON(desc)
	case core.BodyFormData:
		return prepareForm(desc)
	case core.BodyRaw, core.BodyXML, core.BodyGraphQL, core.BodyText:
		return prepareRaw(desc)
	default:
		return nil, fmt.Errorf("%w: %w: %d", ErrExecution, core.ErrUnknownBodyType, int(desc.BodyType))
	}
}

func newRequest(desc *core.RequestDescriptor, rawURL string) (*core.Request, error) {
	req, err := core.NewRequest(strings.ToUpper(desc.Method), rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	req.SetHeaders(desc.Headers)
	return req, nil
}

func prepareQuery(desc *core.RequestDescriptor) (*core.Request, error) {
	return newRequest(desc, desc.QueryURL())
}

func prepareJSON(desc *core.RequestDescriptor) (*core.Request, error) {
	req, err := newRequest(desc, desc.URL)
	if err != nil {
		return nil, err
	}
	body, err := core.NewJSONBody(desc.EnabledKeyValueMap())
	if err != nil {
		return nil, fmt.Errorf("%w: encode json: %w", ErrExecution, err)
	}
	req.SetBody(body)
	return req, nil
}

func prepareForm(desc *core.RequestDescriptor) (*core.Request, error) {
	req, err := newRequest(desc, desc.URL)
	if err != nil {
		return nil, err
	}
	req.SetBody(core.NewFormBody(desc.EnabledFields()))
	return req, nil
}

func prepareRaw(desc *core.RequestDescriptor) (*core.Request, error) {
	req, err := newRequest(desc, desc.URL)
	if err != nil {
		return nil, err
	}
	if desc.RawBody != "" {
		req.SetBody(core.NewRawBody([]byte(desc.RawBody), desc.BodyType.RawContentType()))
	}
	return req, nil
}

func prepareMultipart(desc *core.RequestDescriptor, upload core.ParamRow) (*core.Request, error) {
	req, err := newRequest(desc, desc.URL)
	if err != nil {
		return nil, err
	}
	body, err := buildMultipart(upload, desc.EnabledFields())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	// The boundary lives in the body's content type.
	req.Headers().Del("Content-Type")
	req.SetBody(body)
	return req, nil
}
