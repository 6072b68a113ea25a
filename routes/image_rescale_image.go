package routes

import (
	"image"

	"github.com/nfnt/resize"
)

func rescaleImage(img image.Image, scale float64, interpolation resize.InterpolationFunction) image.Image {
	dX := img.Bounds().Dx()
	dY := img.Bounds().Dy()

	width := max(uint(float64(dX)*scale), 1)
	height := max(uint(float64(dY)*scale), 1)

	return resize.Resize(width, height, img, interpolation)
}
