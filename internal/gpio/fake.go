package gpio

import "github.com/sweeney/motion-sensor/internal/logic"

// FakeIndicator is a test double that records pulses.
type FakeIndicator struct {
	// Pulses contains the kinds that were pulsed, in order.
	Pulses []logic.Kind

	// Closed tracks if Close was called
	Closed bool

	// PulseError, if set, will be returned by Pulse()
	PulseError error
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Pulse records the kind.
func (f *FakeIndicator) Pulse(kind logic.Kind) error {
	if f.PulseError != nil {
		return f.PulseError
	}
	f.Pulses = append(f.Pulses, kind)
	return nil
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded pulses.
func (f *FakeIndicator) Reset() {
	f.Pulses = nil
	f.Closed = false
	f.PulseError = nil
}
