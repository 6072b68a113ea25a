package ppg

// RGB holds per-channel averages over a frame.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

func channelSums(buf []byte, width, height int, layout Layout) (sumR, sumG, sumB int) {
	walk(buf, width, height, layout, func(_, _ int, red, green, blue int) {
		sumR += red
		sumG += green
		sumB += blue
	})
	return sumR, sumG, sumB
}

func averageRGB(buf []byte, width, height int, layout Layout) RGB {
	frameSize := width * height
	if buf == nil || frameSize <= 0 {
		return RGB{}
	}

	sumR, sumG, sumB := channelSums(buf, width, height, layout)
	return RGB{
		R: float64(sumR) / float64(frameSize),
		G: float64(sumG) / float64(frameSize),
		B: float64(sumB) / float64(frameSize),
	}
}

// AverageRGB returns the mean red, green and blue values of an NV21 frame.
// A nil buffer yields the zero triple. The buffer is not validated.
func AverageRGB(buf []byte, width, height int) RGB {
	return averageRGB(buf, width, height, LayoutNV21)
}

// AverageRGBLegacy returns the averages in the historical float32 slice
// shape: four zeros for a nil buffer, otherwise {r, g, b}.
func AverageRGBLegacy(buf []byte, width, height int) []float32 {
	if buf == nil {
		return []float32{0, 0, 0, 0}
	}

	sumR, sumG, sumB := channelSums(buf, width, height, LayoutNV21)
	r, g, b := legacyAverages(sumR, sumG, sumB, width*height)
	return []float32{r, g, b}
}

func legacyAverages(sumR, sumG, sumB, frameSize int) (r, g, b float32) {
	size := float32(frameSize)
	return float32(sumR) / size, float32(sumG) / size, float32(sumB) / size
}
