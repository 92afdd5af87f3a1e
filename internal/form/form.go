// Package form contains utilities for reading uploaded files.
package form

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	magicNumberSeek = 512

	// MaximumUploadSize bounds multipart bodies. ~ 20 MB
	MaximumUploadSize = 20 << 20
)

// allowedImageTypes lists the simple MIME types we accept.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var mimeTypeSuffix = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var (
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	ErrNoImageUploaded     = errors.New("image not uploaded")
	ErrInvalidDataURI      = errors.New("invalid data uri")
)

type File struct {
	Size     int64
	Data     []byte
	Suffix   string
	MimeType string
}

// ReadFile reads an uploaded file and sniffs its MIME type.
func ReadFile(file io.ReadCloser) (*File, error) {
	data, err := io.ReadAll(file)
	defer func() { _ = file.Close() }()
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return fromBytes(data)
}

// ReadImage extracts an uploaded image from a multipart form field.
func ReadImage(r *http.Request, field string) (*File, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errors.Join(ErrNoImageUploaded, err)
	} else if err != nil {
		return nil, fmt.Errorf("getting file from form: %w", err)
	}
	return ReadFile(f)
}

// DecodeDataURI decodes a "data:image/...;base64,..." string into a
// File. The embedded payload is sniffed like any other upload.
func DecodeDataURI(uri string) (*File, error) {
	if !strings.HasPrefix(uri, "data:image") {
		return nil, ErrInvalidDataURI
	}
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok {
		return nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Join(ErrInvalidDataURI, err)
	}
	return fromBytes(data)
}

func fromBytes(data []byte) (*File, error) {
	contentType := http.DetectContentType(data[:min(len(data), magicNumberSeek)])
	if !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("mime type %q: %w", contentType, ErrUnsupportedMimeType)
	}

	return &File{
		Size:     int64(len(data)),
		MimeType: contentType,
		Suffix:   mimeTypeSuffix[contentType],
		Data:     data,
	}, nil
}
