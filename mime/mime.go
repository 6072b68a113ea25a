package mime

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var frameMimeTypes = []string{
	"application/octet-stream",
	"image/x-nv21",
	"image/x-nv12",
}

// imageDecoders is the still image allow-list.
var imageDecoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/gif":  gif.Decode,
	"image/bmp":  bmp.Decode,
	"image/tiff": tiff.Decode,
	"image/webp": func(r io.Reader) (image.Image, error) {
		return webp.Decode(r, &decoder.Options{})
	},
}

var videoMimeTypes = []string{
	"video/mp4",
	"video/ogg",
	"video/webm",
	"video/quicktime",
	"video/x-msvideo",
	"video/x-matroska",
	"video/x-flv",
	"video/x-m4v",
	"video/3gpp",
}

func contains(list []string, mimeType string) bool {
	for _, m := range list {
		if m == mimeType {
			return true
		}
	}

	return false
}

// IsFrameMime reports whether mimeType may carry a raw semi-planar frame.
// An empty type is accepted since camera clients rarely label raw buffers.
func IsFrameMime(mimeType string) bool {
	return mimeType == "" || contains(frameMimeTypes, mimeType)
}

func IsImageMime(mimeType string) bool {
	_, ok := imageDecoders[mimeType]
	return ok
}

// DecodeImage decodes r with the decoder registered for mimeType.
func DecodeImage(r io.Reader, mimeType string) (image.Image, error) {
	decode, ok := imageDecoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("unsupported image format: %s", mimeType)
	}
	return decode(r)
}

func IsVideoMime(mimeType string) bool {
	return contains(videoMimeTypes, mimeType)
}

// LayoutHint returns the chroma layout implied by a frame mime type, or ""
// when the type does not say.
func LayoutHint(mimeType string) string {
	switch mimeType {
	case "image/x-nv21":
		return "nv21"
	case "image/x-nv12":
		return "nv12"
	default:
		return ""
	}
}
