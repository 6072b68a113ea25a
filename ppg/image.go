package ppg

import (
	"image"
)

// ToRGBA renders a validated frame through the same fixed-point transform
// the extractor uses.
func ToRGBA(f Frame) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	if f.Data == nil {
		return img, nil
	}

	walk(f.Data, f.Width, f.Height, f.Layout, func(col, row int, red, green, blue int) {
		off := img.PixOffset(col, row)
		img.Pix[off+0] = uint8(red)
		img.Pix[off+1] = uint8(green)
		img.Pix[off+2] = uint8(blue)
		img.Pix[off+3] = 0xff
	})
	return img, nil
}

func clamp8(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}

// FromImage encodes img as a semi-planar 4:2:0 frame using BT.601 studio
// range. Odd trailing rows or columns are cropped; chroma is the average of
// each 2x2 block.
func FromImage(img image.Image, layout Layout) Frame {
	b := img.Bounds()
	w, h := b.Dx()&^1, b.Dy()&^1
	if w == 0 || h == 0 {
		return Frame{Data: []byte{}, Width: w, Height: h, Layout: layout}
	}

	frameSize := w * h
	data := make([]byte, FrameLength(w, h))

	rgb := func(x, y int) (int, int, int) {
		r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return int(r >> 8), int(g >> 8), int(bl >> 8)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl := rgb(x, y)
			data[y*w+x] = clamp8(((66*r + 129*g + 25*bl + 128) >> 8) + 16)
		}
	}

	for y := 0; y < h; y += 2 {
		uvp := frameSize + (y>>1)*w
		for x := 0; x < w; x += 2 {
			var rSum, gSum, bSum int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					r, g, bl := rgb(x+dx, y+dy)
					rSum += r
					gSum += g
					bSum += bl
				}
			}
			r, g, bl := rSum>>2, gSum>>2, bSum>>2
			u := clamp8(((-38*r - 74*g + 112*bl + 128) >> 8) + 128)
			v := clamp8(((112*r - 94*g - 18*bl + 128) >> 8) + 128)

			if layout == LayoutNV12 {
				data[uvp], data[uvp+1] = u, v
			} else {
				data[uvp], data[uvp+1] = v, u
			}
			uvp += 2
		}
	}

	return Frame{Data: data, Width: w, Height: h, Layout: layout}
}
