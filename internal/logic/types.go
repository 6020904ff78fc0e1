// Package logic contains pure motion classification logic.
// This package has NO external dependencies (no sensors, MQTT, OS, or time.Sleep).
// Time is always injectable via the Sample.Time field.
package logic

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedSample is returned for samples that cannot be classified.
var ErrMalformedSample = errors.New("malformed sample")

// ErrUnknownKind is returned by ParseKind for names outside the known kinds.
var ErrUnknownKind = errors.New("unknown event kind")

// Kind identifies a classified motion pattern.
type Kind string

const (
	KindShake Kind = "shake"
	KindFlip  Kind = "flip"
	KindFall  Kind = "fall"
)

// Kinds returns all event kinds in evaluation order.
func Kinds() []Kind {
	return []Kind{KindShake, KindFlip, KindFall}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindShake, KindFlip, KindFall:
		return true
	}
	return false
}

// ParseKind converts a name such as "shake" into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Sample is a single acceleration reading including gravity, in m/s².
type Sample struct {
	X, Y, Z float64
	Time    time.Time
}

// Validate checks that every axis is a finite number and the sample is timestamped.
func (s Sample) Validate() error {
	for _, v := range [...]float64{s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite axis value %v", ErrMalformedSample, v)
		}
	}
	if s.Time.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedSample)
	}
	return nil
}

// LatchState is the one-shot state of an edge-triggered detector.
type LatchState string

const (
	Armed LatchState = "ARMED"
	Fired LatchState = "FIRED"
)

// Latch fires once per qualifying episode and must be re-armed before it
// can fire again. The zero value is Armed.
type Latch struct {
	fired bool
}

// Fire moves the latch from Armed to Fired. It reports false if the latch
// had already fired.
func (l *Latch) Fire() bool {
	if l.fired {
		return false
	}
	l.fired = true
	return true
}

// Rearm moves the latch back to Armed.
func (l *Latch) Rearm() {
	l.fired = false
}

// State returns the current latch state.
func (l *Latch) State() LatchState {
	if l.fired {
		return Fired
	}
	return Armed
}

// EventCounts tracks the number of each event kind since startup.
type EventCounts struct {
	Shake int
	Flip  int
	Fall  int
}

// Add increments the counter for kind. Unknown kinds are ignored.
func (c *EventCounts) Add(kind Kind) {
	switch kind {
	case KindShake:
		c.Shake++
	case KindFlip:
		c.Flip++
	case KindFall:
		c.Fall++
	}
}

// Get returns the counter for kind.
func (c EventCounts) Get(kind Kind) int {
	switch kind {
	case KindShake:
		return c.Shake
	case KindFlip:
		return c.Flip
	case KindFall:
		return c.Fall
	}
	return 0
}

// Event represents a detected motion event to be published.
type Event struct {
	Timestamp time.Time
	Kind      Kind
	Counts    EventCounts
}
