package logic

import "math"

const (
	// ShakeJitter is the per-axis delta below which a change is treated as noise.
	ShakeJitter = 3.0
	// ShakeCountCap bounds the consecutive shaking counter.
	ShakeCountCap = 50

	// SensitivityDefault is the shake threshold for typical sample streams.
	SensitivityDefault = 1
	// SensitivityDense is the shake threshold for platforms that report
	// denser sample streams.
	SensitivityDense = 4
)

// ShakeDetector classifies consecutive multi-axis jolts as a shake.
//
// The counter climbs while at least two axes change by more than
// ShakeJitter between samples and falls by one on each quiet sample, so a
// single noisy dropout inside a real shake does not restart detection.
type ShakeDetector struct {
	sensitivity int
	count       int
	latch       Latch
}

// NewShakeDetector creates a shake detector that fires once the counter
// reaches sensitivity.
func NewShakeDetector(sensitivity int) *ShakeDetector {
	if sensitivity < 0 {
		sensitivity = SensitivityDefault
	}
	return &ShakeDetector{sensitivity: sensitivity}
}

// Process evaluates cur against the previously accepted sample and reports
// whether a shake fired. It does nothing when prev is nil.
func (d *ShakeDetector) Process(cur Sample, prev *Sample) bool {
	if prev == nil {
		return false
	}

	changed := 0
	for _, delta := range [...]float64{
		math.Abs(cur.X - prev.X),
		math.Abs(cur.Y - prev.Y),
		math.Abs(cur.Z - prev.Z),
	} {
		if delta > ShakeJitter {
			changed++
		}
	}

	if changed >= 2 {
		if d.count == d.sensitivity && d.latch.State() == Armed {
			d.latch.Fire()
			d.count = 0
			return true
		}
		if d.count < ShakeCountCap {
			d.count++
		}
		return false
	}

	if d.count > 0 {
		d.latch.Rearm()
		d.count--
	}
	return false
}

// Count returns the consecutive shaking counter.
func (d *ShakeDetector) Count() int {
	return d.count
}

// State returns the latch state for the current shake episode.
func (d *ShakeDetector) State() LatchState {
	return d.latch.State()
}

// Sensitivity returns the configured firing threshold.
func (d *ShakeDetector) Sensitivity() int {
	return d.sensitivity
}
