package executor

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/artpar/apipost/internal/core"
)

// buildMultipart encodes fields followed by the file named by upload.Value.
// Repeated keys are folded as in urlencoded bodies. The file is read now,
// not when the row was edited.
func buildMultipart(upload core.ParamRow, fields []core.ParamRow) (core.Body, error) {
	file, err := os.Open(upload.Value)
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", upload.Value, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range core.FoldFields(fields) {
		if err := w.WriteField(f.Key, f.Value); err != nil {
			return nil, fmt.Errorf("write field %q: %w", f.Key, err)
		}
	}

	part, err := w.CreateFormFile(upload.Key, filepath.Base(upload.Value))
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read upload %q: %w", upload.Value, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	return core.NewMultipartBody(buf.Bytes(), w.FormDataContentType()), nil
}
