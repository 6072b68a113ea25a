package ppg

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniformFrame builds an NV21 frame with constant luma and chroma.
func uniformFrame(width, height int, y, v, u byte) []byte {
	frameSize := width * height
	buf := make([]byte, FrameLength(width, height))
	for i := 0; i < frameSize; i++ {
		buf[i] = y
	}
	for i := frameSize; i < len(buf); i += 2 {
		buf[i] = v
		buf[i+1] = u
	}
	return buf
}

func TestAverageRGBUniform(t *testing.T) {
	for _, y := range []byte{0, 16, 60, 128, 200, 235, 255} {
		r, g, b := ConvertPixel(y, 128, 128)
		avg := AverageRGB(uniformFrame(8, 6, y, 128, 128), 8, 6)
		assert.Equal(t, RGB{R: float64(r), G: float64(g), B: float64(b)}, avg, "luma %d", y)
	}
}

func TestAverageRGBNil(t *testing.T) {
	assert.Equal(t, RGB{}, AverageRGB(nil, 640, 480))
	assert.Equal(t, RGB{}, AverageRGB(nil, 0, 0))
}

func TestAverageRGBLegacy(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0, 0}, AverageRGBLegacy(nil, 4, 4))
	assert.Equal(t, []float32{254, 254, 254}, AverageRGBLegacy(uniformFrame(2, 2, 235, 128, 128), 2, 2))
}

func TestAverageRGBChromaOrder(t *testing.T) {
	// v is read before u: a saturated first chroma byte drives red, not blue.
	buf := uniformFrame(2, 2, 235, 255, 128)
	avg := AverageRGB(buf, 2, 2)
	assert.Equal(t, float64(255), avg.R)
	assert.Equal(t, float64(254), avg.B)

	s, err := Extract(Frame{Data: buf, Width: 2, Height: 2, Layout: LayoutNV12})
	require.NoError(t, err)
	assert.Equal(t, float64(254), s.Average.R)
	assert.Equal(t, float64(255), s.Average.B)
}

func TestAverageRGBChromaRowsShared(t *testing.T) {
	// Rows 0-1 share the first chroma line, rows 2-3 the second.
	buf := uniformFrame(2, 4, 235, 128, 128)
	buf[8+2] = 255

	avg := AverageRGB(buf, 2, 4)
	assert.Equal(t, (254.0*4+255.0*4)/8, avg.R)
}

func TestQuadrantSums(t *testing.T) {
	// 4x4: midline column 2 and row 2 are excluded, leaving 4, 2, 2 and 1
	// pixels in the four quadrants.
	buf := uniformFrame(4, 4, 235, 128, 128)
	assert.Equal(t, [4]int{4 * 254, 2 * 254, 2 * 254, 254}, QuadrantSums(buf, 4, 4))
	assert.Equal(t, (4*254+2*254)/8, QuadrantRedSignal(buf, 4, 4))
}

func TestQuadrantSumsIndexOrder(t *testing.T) {
	buf := uniformFrame(4, 4, 16, 128, 128)
	buf[3*4+0] = 235 // row 3, col 0: bottom-left
	buf[0*4+3] = 200 // row 0, col 3: top-right

	sums := QuadrantSums(buf, 4, 4)
	r1, _, _ := ConvertPixel(235, 128, 128)
	r2, _, _ := ConvertPixel(200, 128, 128)
	assert.Equal(t, [4]int{0, int(r1), int(r2), 0}, sums)
}

func TestQuadrantIndex(t *testing.T) {
	tests := []struct {
		col, row int
		want     int
	}{
		{0, 0, 0},
		{1, 3, 1},
		{3, 1, 2},
		{3, 3, 3},
		{2, 0, -1},
		{0, 2, -1},
		{2, 2, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quadrantIndex(tt.col, tt.row, 2, 2), "col %d row %d", tt.col, tt.row)
	}
}

func TestQuadrantRedSignalTwoByTwo(t *testing.T) {
	// With a 2x2 frame the midlines are column 1 and row 1, so only the
	// top-left pixel contributes.
	buf := uniformFrame(2, 2, 235, 128, 128)
	assert.Equal(t, [4]int{254, 0, 0, 0}, QuadrantSums(buf, 2, 2))
	assert.Equal(t, 254/2, QuadrantRedSignal(buf, 2, 2))
}

func TestQuadrantRedSignalNil(t *testing.T) {
	assert.Equal(t, 0, QuadrantRedSignal(nil, 640, 480))
	assert.Equal(t, [4]int{}, QuadrantSums(nil, 640, 480))
}

func TestTopTwoOrderIndependent(t *testing.T) {
	base := []int{7, 300, 42, 1000}
	want := 1300

	var permute func(a []int, k int)
	permute = func(a []int, k int) {
		if k == len(a) {
			assert.Equal(t, want, TopTwo([4]int{a[0], a[1], a[2], a[3]}), "%v", a)
			return
		}
		for i := k; i < len(a); i++ {
			a[k], a[i] = a[i], a[k]
			permute(a, k+1)
			a[k], a[i] = a[i], a[k]
		}
	}
	permute(base, 0)
}

func TestQuadrantSignalEqualSums(t *testing.T) {
	for _, k := range []int{0, 1, 255, 12345} {
		assert.Equal(t, 2*k/(640*480/2), quadrantSignal([4]int{k, k, k, k}, 640, 480))
		assert.Equal(t, 2*k/(6*4/2), quadrantSignal([4]int{k, k, k, k}, 6, 4))
	}
	assert.Equal(t, 0, quadrantSignal([4]int{9, 9, 9, 9}, 1, 1))
}

func TestExtract(t *testing.T) {
	buf := uniformFrame(4, 4, 235, 128, 128)
	before := append([]byte(nil), buf...)

	s, err := Extract(Frame{Data: buf, Width: 4, Height: 4})
	require.NoError(t, err)
	assert.Equal(t, AverageRGB(buf, 4, 4), s.Average)
	assert.Equal(t, QuadrantSums(buf, 4, 4), s.Quadrants)
	assert.Equal(t, QuadrantRedSignal(buf, 4, 4), s.Signal)
	assert.Equal(t, 254, s.Intensity)
	assert.False(t, s.Finger)
	assert.Equal(t, before, buf, "buffer must not be modified")
}

func TestExtractNil(t *testing.T) {
	s, err := Extract(Frame{Width: 3, Height: 7})
	require.NoError(t, err)
	assert.Equal(t, Sample{}, s)
}

func TestExtractInvalidGeometry(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{name: "odd width", frame: Frame{Data: make([]byte, FrameLength(3, 2)), Width: 3, Height: 2}},
		{name: "odd height", frame: Frame{Data: make([]byte, FrameLength(2, 3)), Width: 2, Height: 3}},
		{name: "short buffer", frame: Frame{Data: make([]byte, 5), Width: 2, Height: 2}},
		{name: "long buffer", frame: Frame{Data: make([]byte, 7), Width: 2, Height: 2}},
		{name: "zero height", frame: Frame{Data: []byte{}, Width: 2, Height: 0}},
		{name: "negative width", frame: Frame{Data: []byte{}, Width: -2, Height: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.frame)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGeometry))
		})
	}
}

func TestFingerPresent(t *testing.T) {
	assert.True(t, FingerPresent(RGB{R: 200, G: 40, B: 30}))
	assert.False(t, FingerPresent(RGB{R: 119, G: 40, B: 30}), "red too weak")
	assert.False(t, FingerPresent(RGB{R: 200, G: 91, B: 30}), "green too strong")
	assert.False(t, FingerPresent(RGB{R: 200, G: 40, B: 91}), "blue too strong")
	assert.False(t, FingerPresent(RGB{}))
}

func TestExtractFingerFrame(t *testing.T) {
	// Strong red from the chroma pair, little green or blue.
	buf := uniformFrame(4, 4, 100, 230, 110)
	s, err := Extract(Frame{Data: buf, Width: 4, Height: 4})
	require.NoError(t, err)

	r, g, b := ConvertPixel(100, 110, 230)
	assert.Equal(t, RGB{R: float64(r), G: float64(g), B: float64(b)}, s.Average)
	assert.Equal(t, FingerPresent(s.Average), s.Finger)
}

func TestNewSampleTruncatesFloat32Averages(t *testing.T) {
	// 120*N-1 averages to 119.999998 in float64 but rounds to 120 in float32.
	const width, height = 1024, 512
	sumR := 120*width*height - 1

	s := newSample(sumR, 0, 0, [4]int{}, width, height)
	assert.Less(t, s.Average.R, 120.0)
	assert.Equal(t, 60, s.Intensity)
	assert.True(t, s.Finger)
	assert.False(t, FingerPresent(s.Average))
}

func TestToRGBA(t *testing.T) {
	img, err := ToRGBA(Frame{Data: uniformFrame(2, 2, 235, 128, 128), Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 254, G: 254, B: 254, A: 255}, img.RGBAAt(1, 1))

	_, err = ToRGBA(Frame{Data: []byte{1, 2}, Width: 2, Height: 2})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestFromImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 5, 3))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}

	f := FromImage(src, LayoutNV21)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 2, f.Height)
	require.NoError(t, f.Validate())
	assert.Equal(t, uniformFrame(4, 2, 235, 128, 128), f.Data)

	s, err := Extract(f)
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 254, G: 254, B: 254}, s.Average)
}

func TestFromImageLayoutOrder(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+0] = 0xff
		src.Pix[i+3] = 0xff
	}

	nv21 := FromImage(src, LayoutNV21)
	nv12 := FromImage(src, LayoutNV12)
	assert.Equal(t, nv21.Data[4], nv12.Data[5])
	assert.Equal(t, nv21.Data[5], nv12.Data[4])
	assert.Greater(t, nv21.Data[4], byte(128), "Cr first for NV21")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]Sample{
		{Signal: 1, Finger: true},
		{Signal: 2},
		{Signal: 3, Finger: true},
	})
	assert.Equal(t, 3, s.Frames)
	assert.Equal(t, 2, s.FingerFrames)
	assert.InDelta(t, 2.0, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.StdDev, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
}
