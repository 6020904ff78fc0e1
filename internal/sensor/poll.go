package sensor

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/motion"
)

// AccelReader reads one acceleration triple in m/s².
type AccelReader interface {
	ReadAccel() (x, y, z float64, err error)
	Close() error
}

// PollingSource reads an AccelReader at a fixed interval while subscribed.
// The polling goroutine only runs while a subscriber is attached.
type PollingSource struct {
	reader   AccelReader
	interval time.Duration
	now      func() time.Time
	sub      subscriber

	mu     sync.Mutex
	stop   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewPollingSource creates a source that polls r every interval.
func NewPollingSource(r AccelReader, interval time.Duration) *PollingSource {
	return &PollingSource{
		reader:   r,
		interval: interval,
		now:      time.Now,
	}
}

// Subscribe attaches fn and starts polling.
func (p *PollingSource) Subscribe(fn motion.SampleFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.sub.set(fn)
	if p.stop == nil {
		p.stop = make(chan struct{})
		p.wg.Add(1)
		go p.run(p.stop)
	}
	return nil
}

// Unsubscribe detaches the subscriber and stops polling. It does not wait
// for the polling goroutine, so it is safe to call from inside fn.
func (p *PollingSource) Unsubscribe() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sub.set(nil)
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	return nil
}

// Close stops polling, waits for the polling goroutine and closes the reader.
// Must not be called from inside a subscriber.
func (p *PollingSource) Close() error {
	p.Unsubscribe()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	return p.reader.Close()
}

func (p *PollingSource) run(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			p.poll()
		}
	}
}

func (p *PollingSource) poll() {
	fn := p.sub.get()
	if fn == nil {
		return
	}
	x, y, z, err := p.reader.ReadAccel()
	if err != nil {
		log.Printf("sensor: read error: %v", err)
		return
	}
	if err := fn(logic.Sample{X: x, Y: y, Z: z, Time: p.now()}); err != nil {
		log.Printf("sensor: sample rejected: %v", err)
	}
}
