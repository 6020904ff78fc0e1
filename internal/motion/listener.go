package motion

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"
)

// ErrInvalidListener is returned when a listener cannot be registered.
var ErrInvalidListener = errors.New("invalid listener")

// Handler invokes a named method with the arguments a listener was
// registered with. Handlers run on the sensor delivery goroutine and must
// return quickly without blocking.
type Handler interface {
	HandleMotion(method string, args ...any)
}

// Listener is a registered callback for one event kind.
//
// Two listeners are the same registration when Context and Method are
// equal; Arguments do not take part. Context must therefore be a
// comparable value, typically a pointer.
type Listener struct {
	Context   Handler
	Method    string
	Arguments []any
}

func (l Listener) validate() error {
	if l.Context == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidListener)
	}
	if !reflect.ValueOf(l.Context).Comparable() {
		return fmt.Errorf("%w: context type %T is not comparable", ErrInvalidListener, l.Context)
	}
	if l.Method == "" {
		return fmt.Errorf("%w: empty method", ErrInvalidListener)
	}
	return nil
}

// matches reports whether l and other identify the same registration.
func (l Listener) matches(other Listener) bool {
	return l.Context == other.Context && l.Method == other.Method
}

// invoke calls the listener, recovering from a panicking handler so the
// remaining listeners of the same event still run.
func (l Listener) invoke() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("motion: listener %v.%s panicked: %v", l.Context, l.Method, r)
		}
	}()
	l.Context.HandleMotion(l.Method, l.Arguments...)
}

// MethodSet is a Handler built from named functions.
type MethodSet struct {
	name    string
	mu      sync.RWMutex
	methods map[string]func(args ...any)
}

// NewMethodSet creates an empty MethodSet. The name only appears in logs.
func NewMethodSet(name string) *MethodSet {
	return &MethodSet{
		name:    name,
		methods: make(map[string]func(args ...any)),
	}
}

// On registers fn under method, replacing any previous function.
func (m *MethodSet) On(method string, fn func(args ...any)) *MethodSet {
	m.mu.Lock()
	m.methods[method] = fn
	m.mu.Unlock()
	return m
}

// HandleMotion calls the function registered under method.
func (m *MethodSet) HandleMotion(method string, args ...any) {
	m.mu.RLock()
	fn, ok := m.methods[method]
	m.mu.RUnlock()
	if !ok {
		log.Printf("motion: %s has no method %q", m.name, method)
		return
	}
	fn(args...)
}

func (m *MethodSet) String() string {
	return m.name
}
