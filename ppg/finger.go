package ppg

const (
	minRedAverage   = 120
	maxOtherAverage = 90
)

// FingerPresent reports whether the averages look like a fingertip lit by
// the flash: a strong red channel dominating weak green and blue.
func FingerPresent(avg RGB) bool {
	return !(avg.R < minRedAverage ||
		avg.G > avg.R ||
		avg.B > avg.R ||
		avg.B > maxOtherAverage ||
		avg.G > maxOtherAverage)
}
