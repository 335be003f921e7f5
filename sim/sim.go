// Package sim provides an in-memory UART peripheral implementing hal.
// A pair of peripherals can be wired back to back to form a loopback link,
// and error conditions can be injected per frame. It backs the package tests
// and the uartctl loopback commands; no real hardware is involved.
package sim

import (
	"sync"

	"github.com/0x007E/hal-avr-mega-uart/hal"
)

// Peripheral is a simulated USART register file. One frame of receive
// buffering is modeled, matching the hardware the driver targets: a frame
// arriving while the previous one is unread raises the overrun bit and the
// new frame is lost.
type Peripheral struct {
	mu sync.Mutex

	divisor uint16
	format  uint8
	control uint8

	peer *Peripheral

	rxData  byte
	rxFlags uint8
	rxFull  bool

	// injectFlags is applied to the next delivered frame.
	injectFlags uint8

	txBusy    bool
	writes    int
	lastWrite byte
	txLog     []byte
}

var _ hal.Registers = (*Peripheral)(nil)

// New returns an unwired peripheral. Transmitted bytes go nowhere until a
// peer is attached.
func New() *Peripheral {
	return &Peripheral{}
}

// NewLoopback returns two peripherals with each transmitter wired to the
// other's receiver.
func NewLoopback() (*Peripheral, *Peripheral) {
	a, b := New(), New()
	a.peer = b
	b.peer = a
	return a, b
}

// Attach wires p's transmitter to peer's receiver.
func (p *Peripheral) Attach(peer *Peripheral) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peer = peer
}

func (p *Peripheral) SetBaudDivisor(div uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.divisor = div
}

func (p *Peripheral) SetFrameFormat(format uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = format
}

func (p *Peripheral) SetControl(ctrl uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.control = ctrl
}

func (p *Peripheral) ReadStatus() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var status uint8
	if !p.txBusy {
		status |= hal.StatusDataEmpty
	}
	if p.rxFull {
		status |= hal.StatusRxComplete | p.rxFlags
	}
	return status
}

func (p *Peripheral) ReadData() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.rxData
	p.rxFull = false
	p.rxFlags = 0
	return b
}

func (p *Peripheral) WriteData(b byte) {
	p.mu.Lock()
	p.writes++
	p.lastWrite = b
	p.txLog = append(p.txLog, b)
	peer := p.peer
	transmit := p.control&hal.ControlTxEnable != 0
	p.mu.Unlock()

	if transmit && peer != nil {
		peer.receive(b)
	}
}

// receive models a frame completing on the wire. With a frame already
// pending, the pending frame keeps its data and gains the overrun bit.
func (p *Peripheral) receive(b byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.control&hal.ControlRxEnable == 0 {
		return
	}
	if p.rxFull {
		p.rxFlags |= hal.StatusOverrun
		return
	}
	p.rxData = b
	p.rxFlags = p.injectFlags
	p.injectFlags = 0
	p.rxFull = true
}

// InjectRx places a byte directly into the receive register, bypassing any
// peer wiring.
func (p *Peripheral) InjectRx(b byte) {
	p.receive(b)
}

// InjectError marks the next delivered frame with the given hal status bits
// (hal.StatusFrameError, hal.StatusParityError, hal.StatusOverrun).
func (p *Peripheral) InjectError(statusBits uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.injectFlags |= statusBits
}

// InjectFrameError marks the next delivered frame with a frame error.
func (p *Peripheral) InjectFrameError() { p.InjectError(hal.StatusFrameError) }

// InjectParityError marks the next delivered frame with a parity error.
func (p *Peripheral) InjectParityError() { p.InjectError(hal.StatusParityError) }

// InjectOverrun marks the next delivered frame with a data overrun.
func (p *Peripheral) InjectOverrun() { p.InjectError(hal.StatusOverrun) }

// SetTransmitBusy controls the data-register-empty bit, letting tests hold
// the transmit path in its busy-wait loop.
func (p *Peripheral) SetTransmitBusy(busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txBusy = busy
}

// Writes returns how many bytes were written to the transmit data register.
func (p *Peripheral) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// TxLog returns every byte written to the transmit data register in order.
func (p *Peripheral) TxLog() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	log := make([]byte, len(p.txLog))
	copy(log, p.txLog)
	return log
}

// LastWrite returns the most recent byte written to the transmit register.
func (p *Peripheral) LastWrite() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastWrite
}

// Divisor returns the programmed baud divisor.
func (p *Peripheral) Divisor() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.divisor
}

// FrameFormat returns the programmed frame format word.
func (p *Peripheral) FrameFormat() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// Control returns the programmed control word.
func (p *Peripheral) Control() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.control
}

// RxPending reports whether an unread frame sits in the receive register.
func (p *Peripheral) RxPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rxFull
}
