package sensor

import (
	"errors"

	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/motion"
)

// FakeSource is a test double that delivers scripted samples on demand.
type FakeSource struct {
	sub subscriber

	// Subscribes and Unsubscribes count calls that succeeded.
	Subscribes   int
	Unsubscribes int

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Errors collects errors returned by the subscriber for emitted samples.
	Errors []error
}

// NewFakeSource creates an unsubscribed FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// Subscribe attaches fn.
func (f *FakeSource) Subscribe(fn motion.SampleFunc) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.sub.set(fn)
	f.Subscribes++
	return nil
}

// Unsubscribe detaches the current subscriber.
func (f *FakeSource) Unsubscribe() error {
	f.sub.set(nil)
	f.Unsubscribes++
	return nil
}

// Subscribed reports whether a subscriber is attached.
func (f *FakeSource) Subscribed() bool {
	return f.sub.get() != nil
}

// Emit delivers sample to the subscriber synchronously.
// Returns an error if nothing is subscribed.
func (f *FakeSource) Emit(sample logic.Sample) error {
	fn := f.sub.get()
	if fn == nil {
		return errors.New("sensor: no subscriber")
	}
	if err := fn(sample); err != nil {
		f.Errors = append(f.Errors, err)
		return err
	}
	return nil
}

// EmitAll delivers samples in order, stopping at the first delivery failure.
func (f *FakeSource) EmitAll(samples []logic.Sample) error {
	for _, s := range samples {
		if err := f.Emit(s); err != nil {
			return err
		}
	}
	return nil
}
