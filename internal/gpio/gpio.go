// Package gpio drives a GPIO indicator line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/motion-sensor/internal/logic"
)

// Indicator signals detected motion events on an output line.
type Indicator interface {
	// Pulse drives the line active for PulseWidth(kind). It must not
	// block, since it is called from motion listeners.
	Pulse(kind logic.Kind) error

	// Close drives the line inactive and releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM pin number of the indicator LED.
const DefaultPin = 17

// PulseWidth returns how long the line stays active for kind.
func PulseWidth(kind logic.Kind) time.Duration {
	switch kind {
	case logic.KindShake:
		return 100 * time.Millisecond
	case logic.KindFlip:
		return 300 * time.Millisecond
	case logic.KindFall:
		return time.Second
	}
	return 50 * time.Millisecond
}
