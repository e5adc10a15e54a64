package client

import (
	"errors"
	"fmt"
	"strings"
)

const MaxMediaSize = 5 << 20

var (
	ErrUnsupportedMedia = errors.New("please select a valid image file (JPEG, PNG, or GIF)")
	ErrMediaTooLarge    = fmt.Errorf("file size must be less than %dMB", MaxMediaSize>>20)
)

var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ValidateMedia checks an attachment before upload. UploadMedia itself does
// not call it.
func ValidateMedia(contentType string, size int64) error {
	mediaType, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	if !allowedMediaTypes[strings.TrimSpace(mediaType)] {
		return ErrUnsupportedMedia
	}
	if size > MaxMediaSize {
		return ErrMediaTooLarge
	}
	return nil
}
