package ppg

import "slices"

// quadrantIndex returns the quadrant of a pixel in the order top-left,
// bottom-left, top-right, bottom-right, or -1 when it lies on the vertical or
// horizontal midline.
func quadrantIndex(col, row, midX, midY int) int {
	switch {
	case col < midX && row < midY:
		return 0
	case col < midX && row > midY:
		return 1
	case col > midX && row < midY:
		return 2
	case col > midX && row > midY:
		return 3
	default:
		return -1
	}
}

func quadrantSums(buf []byte, width, height int, layout Layout) [4]int {
	var sums [4]int
	if buf == nil {
		return sums
	}

	midX, midY := width/2, height/2
	walk(buf, width, height, layout, func(col, row int, red, _, _ int) {
		if q := quadrantIndex(col, row, midX, midY); q >= 0 {
			sums[q] += red
		}
	})
	return sums
}

// QuadrantSums returns the red channel summed over each quadrant of an NV21
// frame, ordered top-left, bottom-left, top-right, bottom-right.
func QuadrantSums(buf []byte, width, height int) [4]int {
	return quadrantSums(buf, width, height, LayoutNV21)
}

// TopTwo returns the sum of the two largest quadrant sums.
func TopTwo(sums [4]int) int {
	s := sums
	slices.Sort(s[:])
	return s[2] + s[3]
}

func quadrantSignal(sums [4]int, width, height int) int {
	half := width * height / 2
	if half == 0 {
		return 0
	}
	return TopTwo(sums) / half
}

// QuadrantRedSignal sums the red channel of the two brightest quadrants and
// normalises by half the frame size. Shadowed or saturated quadrants caused
// by uneven finger placement are dropped. A nil buffer yields 0.
func QuadrantRedSignal(buf []byte, width, height int) int {
	if buf == nil {
		return 0
	}
	return quadrantSignal(QuadrantSums(buf, width, height), width, height)
}
