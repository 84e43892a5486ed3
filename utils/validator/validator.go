package validator

import (
	"net/http"
)

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IsImageBytes Verify if the file content is an allowed image type.
func IsImageBytes(head []byte) (bool, string) {
	mimeType := http.DetectContentType(head)
	if _, ok := allowedImageMimeTypes[mimeType]; ok {
		return true, mimeType
	}
	return false, mimeType
}
