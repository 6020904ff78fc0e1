package motion

import "github.com/sweeney/motion-sensor/internal/logic"

// SampleFunc receives one raw sample from a Source.
type SampleFunc func(logic.Sample) error

// Source produces acceleration samples.
//
// A source has a single subscriber. Subscribe attaches fn and starts
// delivery; Unsubscribe detaches it. Implementations must not hold their
// own locks while calling fn, since fn may end up calling Unsubscribe.
type Source interface {
	Subscribe(fn SampleFunc) error
	Unsubscribe() error
}

// Recorder observes gate and dispatch activity.
type Recorder interface {
	SampleAccepted()
	SampleDropped()
	SampleMalformed()
	EventFired(kind logic.Kind)
	ListenersChanged(total int, subscribed bool)
}

type nopRecorder struct{}

func (nopRecorder) SampleAccepted()            {}
func (nopRecorder) SampleDropped()             {}
func (nopRecorder) SampleMalformed()           {}
func (nopRecorder) EventFired(logic.Kind)      {}
func (nopRecorder) ListenersChanged(int, bool) {}
