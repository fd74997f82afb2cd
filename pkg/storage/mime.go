package storage

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// SniffImage inspects the payload bytes and returns a file extension when
// the content is an approved image type. Detection uses the payload, not
// the client-declared content type.
func SniffImage(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty payload")
	}
	detected := mimetype.Detect(content)
	if ext, ok := allowedImageTypes[detected.String()]; ok {
		return ext, nil
	}
	return "", fmt.Errorf("unsupported content type %s, expected an image", detected.String())
}
