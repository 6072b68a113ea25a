package ppg

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a series of per-frame samples.
type Summary struct {
	Frames       int     `json:"frames"`
	FingerFrames int     `json:"fingerFrames"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"stdDev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

// Summarize computes statistics of the quadrant signal over samples.
func Summarize(samples []Sample) Summary {
	s := Summary{Frames: len(samples)}
	if len(samples) == 0 {
		return s
	}

	signal := make([]float64, len(samples))
	for i, sample := range samples {
		signal[i] = float64(sample.Signal)
		if sample.Finger {
			s.FingerFrames++
		}
	}

	s.Mean = stat.Mean(signal, nil)
	if len(signal) > 1 {
		s.StdDev = stat.StdDev(signal, nil)
	}
	s.Min = floats.Min(signal)
	s.Max = floats.Max(signal)
	return s
}
