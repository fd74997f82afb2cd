package validators

import (
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/tundeabiodun/handyfix-backend/pkg/errors"
)

const maxPhotoBytes = 10 << 20

// ReadPhotoField extracts an uploaded image from a multipart form. A missing
// part returns nil bytes so the caller decides whether the photo is required.
func ReadPhotoField(r *http.Request, field string) ([]byte, error) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file upload").WithDetails(map[string]any{"field": field})
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read file upload")
	}
	if len(content) > maxPhotoBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file too large").WithDetails(map[string]any{"max_bytes": maxPhotoBytes})
	}
	return content, nil
}

// FormValue returns a trimmed multipart/form field value.
func FormValue(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}
