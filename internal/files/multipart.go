package files

import (
	"io"
	"mime/multipart"

	dErrors "iaset/pkg/domain-errors"
)

// FromMultipart reads one multipart file part fully into memory. Returns nil
// when the header is nil so optional parts flow straight into Store.Save.
// The size cap is enforced here, before any buffering, so an oversized part
// never gets read.
func FromMultipart(fh *multipart.FileHeader) (*Upload, error) {
	if fh == nil {
		return nil, nil
	}
	if fh.Size > MaxFileSize {
		return nil, dErrors.New(dErrors.CodePayloadTooLarge, "file exceeds the 2MB size limit")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Bytes:       data,
	}, nil
}

// FirstFile returns the first file part registered under the given field
// name, or nil when the form carries none.
func FirstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if headers := form.File[field]; len(headers) > 0 {
		return headers[0]
	}
	return nil
}
