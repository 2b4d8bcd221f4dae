package core

import (
	"errors"
	"fmt"
)

// ErrUnknownBodyType is returned when a label does not name a body type.
var ErrUnknownBodyType = errors.New("unknown body type")

// BodyType selects how the request body is authored and encoded.
type BodyType int

const (
	BodyRaw BodyType = iota
	BodyJSON
	BodyFormData
	BodyXML
	BodyGraphQL
	BodyText
)

// BodyTypes lists every body type in selector order.
var BodyTypes = []BodyType{BodyRaw, BodyJSON, BodyFormData, BodyXML, BodyGraphQL, BodyText}

func (t BodyType) String() string {
	switch t {
	case BodyRaw:
		return "raw"
	case BodyJSON:
		return "json"
	case BodyFormData:
		return "form-data"
	case BodyXML:
		return "xml"
	case BodyGraphQL:
		return "graphql"
	case BodyText:
		return "text"
	}
	return fmt.Sprintf("BodyType(%d)", int(t))
}

// IsTableBacked reports whether the parameter table is the source of the body.
func (t BodyType) IsTableBacked() bool {
	return t == BodyJSON || t == BodyFormData
}

// RawContentType is the Content-Type sent for raw-text modes when the user
// did not set one. Plain raw sends none.
func (t BodyType) RawContentType() string {
	switch t {
	case BodyRaw:
		return ""
	case BodyXML:
		return "application/xml"
	case BodyGraphQL:
		return "application/graphql"
	case BodyJSON:
		return "application/json"
	case BodyFormData:
		return "application/x-www-form-urlencoded"
	default:
		return "text/plain"
	}
}

// ParseBodyType maps a selector label to a body type.
func ParseBodyType(label string) (BodyType, error) {
	for _, t := range BodyTypes {
		if t.String() == label {
			return t, nil
		}
	}
	return BodyRaw, fmt.Errorf("%w: %q", ErrUnknownBodyType, label)
}

// BodyTypeLabels returns the selector labels in order.
func BodyTypeLabels() []string {
	labels := make([]string, len(BodyTypes))
	for i, t := range BodyTypes {
		labels[i] = t.String()
	}
	return labels
}

func (t BodyType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *BodyType) UnmarshalText(text []byte) error {
	parsed, err := ParseBodyType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Surface is the editing surface currently shown for the request.
type Surface int

const (
	SurfaceRaw Surface = iota
	SurfaceTable
	SurfaceHeaders
)

func (s Surface) String() string {
	switch s {
	case SurfaceTable:
		return "table"
	case SurfaceHeaders:
		return "headers"
	default:
		return "raw"
	}
}

// BodyEditor holds the body type selection together with both body sources.
// Switching type only changes which source is active; neither is cleared.
type BodyEditor struct {
	bodyType    BodyType
	table       *ParamTable
	raw         string
	showHeaders bool
}

// NewBodyEditor creates an editor with the given initial selection.
func NewBodyEditor(t BodyType) *BodyEditor {
	return &BodyEditor{
		bodyType: t,
		table:    NewParamTable(),
	}
}

func (e *BodyEditor) Type() BodyType {
	return e.bodyType
}

// Select changes the body type and flips the active surface.
func (e *BodyEditor) Select(t BodyType) {
	e.bodyType = t
}

// SelectLabel selects by selector label.
func (e *BodyEditor) SelectLabel(label string) error {
	t, err := ParseBodyType(label)
	if err != nil {
		return err
	}
	e.Select(t)
	return nil
}

// Surface reports which editor is visible.
func (e *BodyEditor) Surface() Surface {
	if e.showHeaders {
		return SurfaceHeaders
	}
	if e.bodyType.IsTableBacked() {
		return SurfaceTable
	}
	return SurfaceRaw
}

// ShowHeaders switches to the header editor.
func (e *BodyEditor) ShowHeaders() {
	e.showHeaders = true
}

// ShowBody switches back to whichever body surface the type selects.
func (e *BodyEditor) ShowBody() {
	e.showHeaders = false
}

func (e *BodyEditor) Table() *ParamTable {
	return e.table
}

func (e *BodyEditor) Raw() string {
	return e.raw
}

func (e *BodyEditor) SetRaw(text string) {
	e.raw = text
}

// PrettyRaw reformats the raw text as indented JSON when it parses.
func (e *BodyEditor) PrettyRaw() {
	e.raw = PrettyJSON(e.raw)
}
