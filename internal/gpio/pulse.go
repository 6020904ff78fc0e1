package gpio

import (
	"log"
	"sync"
	"time"
)

// valueSetter is the part of a requested output line a pulser drives.
type valueSetter interface {
	SetValue(value int) error
}

// pulser drives a line active and clears it after a delay. A pulse that
// arrives while one is active extends it. Only the timer of the latest
// pulse may clear the line.
type pulser struct {
	line valueSetter

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func (p *pulser) pulse(width time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.line.SetValue(1); err != nil {
		return err
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(width, func() { p.expire(gen) })
	return nil
}

// expire clears the line if gen still belongs to the latest pulse. Stop
// cannot cancel a callback that is already waiting on mu, so stale ones
// return here.
func (p *pulser) expire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}
	p.timer = nil
	if err := p.line.SetValue(0); err != nil {
		log.Printf("gpio: clear indicator: %v", err)
	}
}

// stop cancels the pending clear without touching the line.
func (p *pulser) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}
