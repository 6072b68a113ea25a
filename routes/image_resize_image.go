package routes

import (
	"image"

	"github.com/nfnt/resize"
)

// resizeImage scales to width x height. A zero dimension keeps the aspect ratio.
func resizeImage(img image.Image, width int, height int, interpolation resize.InterpolationFunction) image.Image {
	return resize.Resize(uint(width), uint(height), img, interpolation)
}
