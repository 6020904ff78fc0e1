package logic

// Free-fall envelope, inclusive on both ends.
const (
	FallXYLimit = 2.0
	FallZLimit  = 0.5
)

// FallDetector approximates free fall as near-zero acceleration on all
// three axes. It fires once per continuous dip into the envelope.
type FallDetector struct {
	latch Latch
}

// NewFallDetector creates an armed fall detector.
func NewFallDetector() *FallDetector {
	return &FallDetector{}
}

// Process evaluates cur and reports whether a fall fired.
func (d *FallDetector) Process(cur Sample) bool {
	if !inFreeFall(cur) {
		d.latch.Rearm()
		return false
	}
	return d.latch.Fire()
}

// State returns the latch state for the current free-fall episode.
func (d *FallDetector) State() LatchState {
	return d.latch.State()
}

func inFreeFall(s Sample) bool {
	return s.X >= -FallXYLimit && s.X <= FallXYLimit &&
		s.Y >= -FallXYLimit && s.Y <= FallXYLimit &&
		s.Z >= -FallZLimit && s.Z <= FallZLimit
}
