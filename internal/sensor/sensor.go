// Package sensor provides acceleration sample sources with hardware abstraction.
// The real implementations read an ADXL345 over I2C or subscribe to an MQTT topic.
// The fake implementation allows testing without hardware.
package sensor

import (
	"errors"
	"sync"

	"github.com/sweeney/motion-sensor/internal/motion"
)

// Standard gravity, used to convert g to m/s².
const StandardGravity = 9.80665

// ErrClosed is returned when subscribing to a closed source.
var ErrClosed = errors.New("sensor: source closed")

// subscriber holds the single SampleFunc attached to a source.
type subscriber struct {
	mu sync.Mutex
	fn motion.SampleFunc
}

func (s *subscriber) set(fn motion.SampleFunc) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

// get returns the current subscriber without holding the lock while it runs.
func (s *subscriber) get() motion.SampleFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn
}
