package ticket

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/infusio/infusio/internal/application/ticket/usecases"
	"github.com/infusio/infusio/internal/shared/errors"
)

// MaxAttachmentBytes bounds a single uploaded file.
const MaxAttachmentBytes = 20 << 20

// ReadUpload loads an uploaded file into memory.
func ReadUpload(fh *multipart.FileHeader) (*usecases.UploadedFile, error) {
	if fh.Size > MaxAttachmentBytes {
		return nil, errors.NewValidationError(
			fmt.Sprintf("anexo excede o limite de %d MB", MaxAttachmentBytes>>20),
		)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
	}
	if len(content) > MaxAttachmentBytes {
		return nil, errors.NewValidationError(
			fmt.Sprintf("anexo excede o limite de %d MB", MaxAttachmentBytes>>20),
		)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &usecases.UploadedFile{
		Filename:    fh.Filename,
		ContentType: contentType,
		Content:     content,
	}, nil
}
