package ppg

// 18-bit fixed point ceiling of the intermediate channel values.
const maxChannel = 262143

// Layout selects the byte order of the interleaved chroma plane.
type Layout int

const (
	// LayoutNV21 stores Cr before Cb (v then u). Android camera default.
	LayoutNV21 Layout = iota
	// LayoutNV12 stores Cb before Cr.
	LayoutNV12
)

func (l Layout) String() string {
	switch l {
	case LayoutNV12:
		return "nv12"
	default:
		return "nv21"
	}
}

// ParseLayout maps "nv21"/"nv12" to a Layout. Empty input means NV21.
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "", "nv21":
		return LayoutNV21, true
	case "nv12":
		return LayoutNV12, true
	default:
		return LayoutNV21, false
	}
}

func clampChannel(x int) int {
	if x < 0 {
		return 0
	}
	if x > maxChannel {
		return maxChannel
	}
	return x
}

// convert18 returns the clamped 18-bit r, g, b intermediates for one pixel.
// u and v are already centred on zero.
func convert18(y byte, u, v int) (r, g, b int) {
	yy := int(y) - 16
	if yy < 0 {
		yy = 0
	}

	c := 1192 * yy
	r = clampChannel(c + 1634*v)
	g = clampChannel(c - 833*v - 400*u)
	b = clampChannel(c + 2066*u)
	return r, g, b
}

func pack(r, g, b int) uint32 {
	return 0xff000000 | uint32((r<<6)&0xff0000) | uint32((g>>2)&0xff00) | uint32((b>>10)&0xff)
}

// PackARGB converts one luma sample and its shared chroma pair into the
// packed 0xAARRGGBB word produced by the fixed-point BT.601 transform.
func PackARGB(y, u, v byte) uint32 {
	r, g, b := convert18(y, int(u)-128, int(v)-128)
	return pack(r, g, b)
}

// ConvertPixel returns the 8-bit red, green and blue values for one pixel.
func ConvertPixel(y, u, v byte) (red, green, blue uint8) {
	p := PackARGB(y, u, v)
	return uint8(p >> 16), uint8(p >> 8), uint8(p)
}

// walk visits every pixel in raster order with its 8-bit RGB value. Chroma is
// read once per pair of columns from the row's chroma line.
func walk(buf []byte, width, height int, layout Layout, fn func(col, row int, red, green, blue int)) {
	frameSize := width * height

	for row, pixel := 0, 0; row < height; row++ {
		uvp := frameSize + (row>>1)*width
		u, v := 0, 0

		for col := 0; col < width; col, pixel = col+1, pixel+1 {
			if col&1 == 0 {
				if layout == LayoutNV12 {
					u = int(buf[uvp]) - 128
					v = int(buf[uvp+1]) - 128
				} else {
					v = int(buf[uvp]) - 128
					u = int(buf[uvp+1]) - 128
				}
				uvp += 2
			}

			r, g, b := convert18(buf[pixel], u, v)
			p := pack(r, g, b)
			fn(col, row, int(p>>16&0xff), int(p>>8&0xff), int(p&0xff))
		}
	}
}
