//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/motion-sensor/internal/logic"
)

// RealIndicator drives an output line using the Linux GPIO character device.
type RealIndicator struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	pulser *pulser
}

// NewRealIndicator requests pin as an output, initially inactive.
func NewRealIndicator(pin int) (*RealIndicator, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request indicator pin %d: %w", pin, err)
	}

	return &RealIndicator{chip: chip, line: line, pulser: &pulser{line: line}}, nil
}

// Pulse drives the line high and schedules it low after PulseWidth(kind).
// A pulse arriving while one is active extends it.
func (r *RealIndicator) Pulse(kind logic.Kind) error {
	if err := r.pulser.pulse(PulseWidth(kind)); err != nil {
		return fmt.Errorf("set indicator: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing to ensure clean state for system shutdown/reboot.
func (r *RealIndicator) Close() error {
	r.pulser.stop()

	var errs []error
	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear indicator: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure indicator pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close indicator pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
