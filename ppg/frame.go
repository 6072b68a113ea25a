package ppg

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when a frame buffer does not match its
// declared dimensions.
var ErrInvalidGeometry = errors.New("invalid frame geometry")

// Frame is one semi-planar YUV 4:2:0 camera frame.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Layout Layout
}

// FrameLength returns the byte length of a semi-planar 4:2:0 frame.
func FrameLength(width, height int) int {
	return width * height * 3 / 2
}

// Validate checks that the buffer length and dimensions describe a
// well-formed frame. A nil buffer is valid.
func (f Frame) Validate() error {
	if f.Data == nil {
		return nil
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidGeometry, f.Width, f.Height)
	}
	if f.Width&1 != 0 {
		return fmt.Errorf("%w: width %d must be even", ErrInvalidGeometry, f.Width)
	}
	// Every chroma row is shared by two luma rows.
	if f.Height&1 != 0 {
		return fmt.Errorf("%w: height %d must be even", ErrInvalidGeometry, f.Height)
	}
	if want := FrameLength(f.Width, f.Height); len(f.Data) != want {
		return fmt.Errorf("%w: buffer is %d bytes, %dx%d needs %d", ErrInvalidGeometry, len(f.Data), f.Width, f.Height, want)
	}
	return nil
}

// Sample is the signal extracted from a single frame.
type Sample struct {
	Average   RGB    `json:"average"`
	Quadrants [4]int `json:"quadrants"`
	Signal    int    `json:"signal"`
	Intensity int    `json:"intensity"`
	Finger    bool   `json:"finger"`
}

// Extract validates f and computes the channel averages and the quadrant red
// signal in a single pass. A frame without data yields the zero Sample.
func Extract(f Frame) (Sample, error) {
	if err := f.Validate(); err != nil {
		return Sample{}, err
	}
	if f.Data == nil {
		return Sample{}, nil
	}

	var sumR, sumG, sumB int
	var sums [4]int
	midX, midY := f.Width/2, f.Height/2

	walk(f.Data, f.Width, f.Height, f.Layout, func(col, row int, red, green, blue int) {
		sumR += red
		sumG += green
		sumB += blue

		if q := quadrantIndex(col, row, midX, midY); q >= 0 {
			sums[q] += red
		}
	})

	return newSample(sumR, sumG, sumB, sums, f.Width, f.Height), nil
}

// newSample builds a Sample from the channel and quadrant sums. Intensity and
// Finger use the float32 averages, truncated, as the camera pipeline does.
func newSample(sumR, sumG, sumB int, sums [4]int, width, height int) Sample {
	frameSize := float64(width * height)
	r32, g32, b32 := legacyAverages(sumR, sumG, sumB, width*height)

	return Sample{
		Average: RGB{
			R: float64(sumR) / frameSize,
			G: float64(sumG) / frameSize,
			B: float64(sumB) / frameSize,
		},
		Quadrants: sums,
		Signal:    quadrantSignal(sums, width, height),
		Intensity: (int(r32) + int(g32)) / 2,
		Finger:    FingerPresent(RGB{R: float64(r32), G: float64(g32), B: float64(b32)}),
	}
}
