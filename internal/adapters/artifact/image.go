// Package artifact stores uploaded listing images on local disk or in an
// S3 compatible bucket.
package artifact

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("artifact: unsupported image type")

var imageExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// DetectImage sniffs head (the first bytes of an upload) and returns the content
// type and file extension. Only PNG and JPEG are accepted.
func DetectImage(head []byte) (contentType, ext string, err error) {
	contentType = http.DetectContentType(head)
	ext, ok := imageExt[contentType]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return contentType, ext, nil
}

// NewName returns a collision free object name with the given extension.
func NewName(ext string) string {
	return uuid.NewString() + "." + ext
}
