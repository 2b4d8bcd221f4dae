package exporter

import (
	"errors"
)

// Common errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrExportFailed   = errors.New("export failed")
)
