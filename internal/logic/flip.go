package logic

// Flip thresholds on the z axis.
const (
	FlipBandLow  = -12.0 // inclusive
	FlipBandHigh = -8.0  // exclusive
	FlipMinSum   = 20.0  // inclusive
	FlipMaxSum   = 1000.0
)

// FlipDetector recognises a period of motion that settles into a
// face-down rest.
//
// While z is outside the face-down band it is summed into an accumulator.
// Entering the band fires when the accumulator lies in [FlipMinSum,
// FlipMaxSum) and always resets it. The accumulator is not bounded.
type FlipDetector struct {
	sum float64
}

// NewFlipDetector creates a flip detector with an empty accumulator.
func NewFlipDetector() *FlipDetector {
	return &FlipDetector{}
}

// Process evaluates cur and reports whether a flip fired.
func (d *FlipDetector) Process(cur Sample) bool {
	if cur.Z >= FlipBandLow && cur.Z < FlipBandHigh {
		fired := d.sum >= FlipMinSum && d.sum < FlipMaxSum
		d.sum = 0
		return fired
	}
	d.sum += cur.Z
	return false
}

// Sum returns the current accumulator value.
func (d *FlipDetector) Sum() float64 {
	return d.sum
}
