// Package motion turns a stream of acceleration samples into shake, flip
// and fall events and dispatches them to registered listeners.
//
// A single Motion owns the listener registry, the previously accepted
// sample and the state of every detector. Detection runs once per accepted
// sample and is broadcast to all listeners of a kind; listeners never get
// private detection state.
package motion

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/motion-sensor/internal/logic"
)

// DefaultMinInterval is the minimum spacing between accepted samples.
const DefaultMinInterval = 50 * time.Millisecond

// ErrInvalidEventKind is returned for kinds outside shake, flip and fall.
var ErrInvalidEventKind = errors.New("invalid event kind")

// ErrMalformedSample is returned by OnSample for samples that fail validation.
var ErrMalformedSample = logic.ErrMalformedSample

// Config tunes the sample gate and the shake detector.
// Zero fields take their defaults.
type Config struct {
	// MinInterval is the minimum time between two accepted samples.
	MinInterval time.Duration
	// Sensitivity is the shake threshold, see logic.SensitivityDefault
	// and logic.SensitivityDense.
	Sensitivity int
}

// DefaultConfig returns the configuration used for typical sample streams.
func DefaultConfig() Config {
	return Config{
		MinInterval: DefaultMinInterval,
		Sensitivity: logic.SensitivityDefault,
	}
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.Sensitivity <= 0 {
		c.Sensitivity = logic.SensitivityDefault
	}
	return c
}

// Option customises a Motion at construction.
type Option func(*Motion)

// WithRecorder attaches a Recorder, e.g. Prometheus metrics.
func WithRecorder(r Recorder) Option {
	return func(m *Motion) {
		if r != nil {
			m.rec = r
		}
	}
}

// Stats is a point-in-time view of gate and registry activity.
type Stats struct {
	Accepted   uint64
	Dropped    uint64
	Malformed  uint64
	Listeners  map[logic.Kind]int
	Subscribed bool
	Fired      logic.EventCounts
}

// TotalListeners returns the number of listeners across all kinds.
func (s Stats) TotalListeners() int {
	n := 0
	for _, c := range s.Listeners {
		n += c
	}
	return n
}

// Motion is the process-wide motion classifier.
type Motion struct {
	cfg Config
	src Source
	rec Recorder

	// sampleMu serialises OnSample from gate through dispatch. The fields
	// below it are only touched with sampleMu held.
	sampleMu sync.Mutex
	prev     *logic.Sample
	shake    *logic.ShakeDetector
	flip     *logic.FlipDetector
	fall     *logic.FallDetector

	// mu guards the registry and stats. It is never held while a listener
	// runs, so listeners may add or remove listeners.
	mu         sync.Mutex
	listeners  map[logic.Kind][]Listener
	total      int
	subscribed bool
	stats      Stats
}

var (
	instance     *Motion
	instanceOnce sync.Once
)

// Get returns the process-wide Motion, creating it on the first call.
// Later calls return the same instance and ignore their arguments.
func Get(src Source, cfg Config, opts ...Option) *Motion {
	instanceOnce.Do(func() {
		instance = newMotion(src, cfg, opts...)
	})
	return instance
}

func newMotion(src Source, cfg Config, opts ...Option) *Motion {
	cfg = cfg.withDefaults()
	m := &Motion{
		cfg:       cfg,
		src:       src,
		rec:       nopRecorder{},
		shake:     logic.NewShakeDetector(cfg.Sensitivity),
		flip:      logic.NewFlipDetector(),
		fall:      logic.NewFallDetector(),
		listeners: make(map[logic.Kind][]Listener, len(logic.Kinds())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration.
func (m *Motion) Config() Config {
	return m.cfg
}

// OnSample is the sample gate. Sources call it for every raw sample.
//
// Samples closer than MinInterval to the previously accepted one are
// dropped without touching any state. Accepted samples are run through the
// detector of every kind that has listeners, become the new previous
// sample, and then each fired kind is dispatched.
func (m *Motion) OnSample(s logic.Sample) error {
	m.sampleMu.Lock()
	defer m.sampleMu.Unlock()

	if err := s.Validate(); err != nil {
		m.mu.Lock()
		m.stats.Malformed++
		m.mu.Unlock()
		m.rec.SampleMalformed()
		return fmt.Errorf("motion: %w", err)
	}

	if m.prev != nil && s.Time.Sub(m.prev.Time) < m.cfg.MinInterval {
		m.mu.Lock()
		m.stats.Dropped++
		m.mu.Unlock()
		m.rec.SampleDropped()
		return nil
	}

	m.mu.Lock()
	active := make(map[logic.Kind]bool, len(m.listeners))
	for kind, entries := range m.listeners {
		active[kind] = len(entries) > 0
	}
	m.stats.Accepted++
	m.mu.Unlock()
	m.rec.SampleAccepted()

	var fired []logic.Kind
	for _, kind := range logic.Kinds() {
		if active[kind] && m.detect(kind, s) {
			fired = append(fired, kind)
		}
	}

	cur := s
	m.prev = &cur

	for _, kind := range fired {
		m.dispatch(kind)
	}
	return nil
}

func (m *Motion) detect(kind logic.Kind, s logic.Sample) bool {
	switch kind {
	case logic.KindShake:
		return m.shake.Process(s, m.prev)
	case logic.KindFlip:
		return m.flip.Process(s)
	case logic.KindFall:
		return m.fall.Process(s)
	}
	return false
}

// dispatch invokes, in registration order, every listener registered for
// kind at the time it fired.
func (m *Motion) dispatch(kind logic.Kind) {
	m.mu.Lock()
	entries := append([]Listener(nil), m.listeners[kind]...)
	m.stats.Fired.Add(kind)
	m.mu.Unlock()

	m.rec.EventFired(kind)
	for _, l := range entries {
		l.invoke()
	}
}

// AddListener registers l for kind. Registering the first listener across
// all kinds subscribes to the sensor source.
func (m *Motion) AddListener(kind logic.Kind, l Listener) error {
	if !kind.Valid() {
		return fmt.Errorf("motion: %w: %q", ErrInvalidEventKind, kind)
	}
	if err := l.validate(); err != nil {
		return fmt.Errorf("motion: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners[kind] = append(m.listeners[kind], l)
	m.total++

	if m.total == 1 && !m.subscribed {
		if err := m.src.Subscribe(m.OnSample); err != nil {
			entries := m.listeners[kind]
			m.listeners[kind] = entries[:len(entries)-1]
			m.total--
			return fmt.Errorf("motion: subscribe: %w", err)
		}
		m.subscribed = true
		log.Printf("motion: subscribed to sensor source")
	}

	m.rec.ListenersChanged(m.total, m.subscribed)
	return nil
}

// RemoveListener removes every listener for kind with the same Context and
// Method as l. Removing the last listener across all kinds unsubscribes
// from the sensor source. Removing a listener that is not registered is a
// no-op.
func (m *Motion) RemoveListener(kind logic.Kind, l Listener) error {
	if !kind.Valid() {
		return fmt.Errorf("motion: %w: %q", ErrInvalidEventKind, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.listeners[kind]
	kept := make([]Listener, 0, len(entries))
	for _, e := range entries {
		if !e.matches(l) {
			kept = append(kept, e)
		}
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return nil
	}

	m.listeners[kind] = kept
	m.total -= removed

	var err error
	if m.total == 0 && m.subscribed {
		if uerr := m.src.Unsubscribe(); uerr != nil {
			err = fmt.Errorf("motion: unsubscribe: %w", uerr)
		} else {
			m.subscribed = false
			log.Printf("motion: unsubscribed from sensor source")
		}
	}

	m.rec.ListenersChanged(m.total, m.subscribed)
	return err
}

// Stats returns a snapshot of gate counters and registry sizes.
func (m *Motion) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Subscribed = m.subscribed
	s.Listeners = make(map[logic.Kind]int, len(logic.Kinds()))
	for _, kind := range logic.Kinds() {
		s.Listeners[kind] = len(m.listeners[kind])
	}
	return s
}
