package sim

import (
	"sync"

	"github.com/0x007E/hal-avr-mega-uart/hal"
)

// wire is a shared signal level between two pin views.
type wire struct {
	mu    sync.Mutex
	level bool
}

// Pin is one end of a simulated digital signal line.
type Pin struct {
	w      *wire
	output bool
}

var _ hal.Pin = (*Pin)(nil)

// NewWire returns two pins sharing one signal level, e.g. a local RTS output
// and the peer's CTS input.
func NewWire() (*Pin, *Pin) {
	w := &wire{}
	return &Pin{w: w}, &Pin{w: w}
}

// NewPin returns a standalone pin, useful when only one end is driven.
func NewPin() *Pin {
	return &Pin{w: &wire{}}
}

func (p *Pin) ConfigureOutput() { p.output = true }
func (p *Pin) ConfigureInput()  { p.output = false }

func (p *Pin) Set(high bool) {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	p.w.level = high
}

func (p *Pin) Get() bool {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.w.level
}
