package audio

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxUploadBytes is the largest file accepted for upload (25 MiB).
const DefaultMaxUploadBytes int64 = 25 * 1024 * 1024

var (
	ErrInvalidType = errors.New("file is not an audio file")
	ErrTooLarge    = errors.New("file exceeds the upload size limit")
)

// ValidateUpload checks an upload before anything is sent: the name must
// resolve to an audio/* MIME type and size must not exceed maxBytes. A
// non-positive maxBytes means DefaultMaxUploadBytes. It returns the MIME type.
func ValidateUpload(name string, size int64, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	mimeType, err := ResolveMIMEType(name)
	if err != nil || !strings.HasPrefix(mimeType, "audio/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidType, name)
	}
	if size > maxBytes {
		return "", fmt.Errorf("%w: %d bytes > %d bytes", ErrTooLarge, size, maxBytes)
	}
	return mimeType, nil
}
