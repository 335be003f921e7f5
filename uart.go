package uart

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0x007E/hal-avr-mega-uart/hal"
)

// Driver is a polling UART driver bound to one peripheral's register file.
// All blocking operations busy-wait on hardware readiness bits; there is no
// interrupt path. A driver supports one logical thread of control; the
// internal locking only guards lifecycle state, not operation ordering.
type Driver struct {
	mu     sync.RWMutex
	closed bool

	regs   hal.Registers
	config Config
	tick   time.Duration

	// Software flow control gate, toggled by XON/XOFF from the peer.
	txPermitted atomic.Bool

	// Software receive backlog. Frames land here when the transmit path has
	// to drain the receive register while suppressed by XOFF.
	rxMu sync.Mutex
	rxq  []pendingFrame
}

type pendingFrame struct {
	b     byte
	flags Flags
}

var (
	ownerMu sync.Mutex
	owners  = make(map[hal.Registers]struct{})
)

func claim(regs hal.Registers) error {
	ownerMu.Lock()
	defer ownerMu.Unlock()
	if _, busy := owners[regs]; busy {
		return ErrPeripheralInUse
	}
	owners[regs] = struct{}{}
	return nil
}

func release(regs hal.Registers) {
	ownerMu.Lock()
	defer ownerMu.Unlock()
	delete(owners, regs)
}

// Open initializes the peripheral behind regs and returns an enabled driver.
// It computes and validates the baud rate divisor, applies the frame format,
// enables the configured directions and, for hardware flow control, sets up
// the handshake pins with RTS asserted. An unachievable baud rate fails the
// call; the line is never mis-clocked. Opening a peripheral that is already
// owned by a live driver fails with ErrPeripheralInUse.
func Open(regs hal.Registers, opts ...Option) (*Driver, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	div, err := Divisor(config.ClockHz, config.BaudRate)
	if err != nil {
		return nil, err
	}
	if err := claim(regs); err != nil {
		return nil, err
	}

	regs.SetBaudDivisor(div)
	regs.SetFrameFormat(config.frameFormat())

	var ctrl uint8
	if config.Direction&DirectionRx != 0 {
		ctrl |= hal.ControlRxEnable
	}
	if config.Direction&DirectionTx != 0 {
		ctrl |= hal.ControlTxEnable
	}
	regs.SetControl(ctrl)

	if config.FlowControl == FlowControlHardware {
		config.RTS.ConfigureOutput()
		config.RTS.Set(true) // signal receive capacity from the start
		config.CTS.ConfigureInput()
	}

	d := &Driver{
		regs:   regs,
		config: config,
		tick:   config.pollTick(),
	}
	d.txPermitted.Store(true)
	return d, nil
}

// Config returns a copy of the driver's resolved configuration.
func (d *Driver) Config() Config { return d.config }

// Close disables the transmitter and receiver sub-units and releases
// ownership of the peripheral. All further operations on the driver return
// ErrClosed; re-enabling requires a new Open.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	d.mu.Unlock()

	d.regs.SetControl(0)
	release(d.regs)
	return nil
}

func (d *Driver) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// wait sleeps one poll tick or aborts when ctx is done.
func (d *Driver) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.tick):
		return nil
	}
}

// Send transmits a single byte, blocking until the transmit data register is
// empty and flow control permits transmission. There is no timeout; callers
// needing bounded latency should use SendContext. The transmitted byte is
// returned on success.
func (d *Driver) Send(b byte) (byte, error) {
	return d.SendContext(context.Background(), b)
}

// SendContext is Send with caller-provided cancellation. Flow control pauses
// are not errors, only latency; the only error paths are cancellation and
// contract violations (transmit disabled, driver closed).
func (d *Driver) SendContext(ctx context.Context, b byte) (byte, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return 0, ErrClosed
	}
	if d.config.Direction&DirectionTx == 0 {
		d.mu.RUnlock()
		return 0, ErrTxDisabled
	}
	d.mu.RUnlock()
	return d.transmit(ctx, b)
}

// transmit is the single transmit path shared by Send, echo and the stream
// adapter. It enforces both flow control protocols before touching the data
// register.
func (d *Driver) transmit(ctx context.Context, b byte) (byte, error) {
	for {
		if d.isClosed() {
			return 0, ErrClosed
		}

		switch d.config.FlowControl {
		case FlowControlSoftware:
			// Drain any pending control byte first so an XOFF already
			// sitting in the receive register suppresses this write.
			d.absorbControl()
			if !d.txPermitted.Load() {
				if err := d.wait(ctx); err != nil {
					return 0, err
				}
				continue
			}
		case FlowControlHardware:
			d.updateRTS()
			// CTS is sampled fresh on every attempt; the peer may change
			// it at any time.
			if !d.config.CTS.Get() {
				if err := d.wait(ctx); err != nil {
					return 0, err
				}
				continue
			}
		}

		if d.regs.ReadStatus()&hal.StatusDataEmpty == 0 {
			if err := d.wait(ctx); err != nil {
				return 0, err
			}
			continue
		}
		d.regs.WriteData(b)
		return b, nil
	}
}

// rawTransmit writes a byte waiting only for the data register, bypassing
// flow control gates. Used for XON/XOFF themselves, which must go out even
// while data transmission is suppressed.
func (d *Driver) rawTransmit(ctx context.Context, b byte) error {
	for d.regs.ReadStatus()&hal.StatusDataEmpty == 0 {
		if d.isClosed() {
			return ErrClosed
		}
		if err := d.wait(ctx); err != nil {
			return err
		}
	}
	d.regs.WriteData(b)
	return nil
}

// Recv receives a single byte, blocking until a frame is available. The
// returned flags describe only this frame's reception; they are advisory and
// never withhold the byte. XON/XOFF bytes are absorbed by the flow control
// layer in software mode and never surface here.
func (d *Driver) Recv() (byte, Flags, error) {
	return d.RecvContext(context.Background())
}

// RecvContext is Recv with caller-provided cancellation.
func (d *Driver) RecvContext(ctx context.Context) (byte, Flags, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return 0, 0, ErrClosed
	}
	if d.config.Direction&DirectionRx == 0 {
		d.mu.RUnlock()
		return 0, 0, ErrRxDisabled
	}
	d.mu.RUnlock()

	for {
		if d.isClosed() {
			return 0, 0, ErrClosed
		}
		if b, flags, ok := d.takePending(); ok {
			return d.deliver(ctx, b, flags)
		}

		// Status must be read before data: the error bits describe the frame
		// still pending in the data register and are cleared by reading it.
		status := d.regs.ReadStatus()
		if status&hal.StatusRxComplete == 0 {
			if err := d.wait(ctx); err != nil {
				return 0, 0, err
			}
			continue
		}
		flags := decodeFlags(status)
		b := d.regs.ReadData()

		if d.config.FlowControl == FlowControlSoftware {
			if b == d.config.XON {
				d.txPermitted.Store(true)
				continue
			}
			if b == d.config.XOFF {
				d.txPermitted.Store(false)
				continue
			}
		}
		return d.deliver(ctx, b, flags)
	}
}

// deliver finishes a successful reception: re-evaluates RTS now that local
// capacity changed and echoes the byte when configured.
func (d *Driver) deliver(ctx context.Context, b byte, flags Flags) (byte, Flags, error) {
	if d.config.FlowControl == FlowControlHardware {
		d.updateRTS()
	}
	if d.config.Echo && d.config.Direction&DirectionTx != 0 {
		if _, err := d.transmit(ctx, b); err != nil {
			return b, flags, err
		}
	}
	return b, flags, nil
}

// takePending pops the oldest frame from the software backlog.
func (d *Driver) takePending() (byte, Flags, bool) {
	d.rxMu.Lock()
	defer d.rxMu.Unlock()
	if len(d.rxq) == 0 {
		return 0, 0, false
	}
	p := d.rxq[0]
	d.rxq = d.rxq[1:]
	return p.b, p.flags, true
}

// absorbControl drains a pending receive frame from inside the transmit
// path. XON/XOFF toggle the transmit gate and are absorbed unconditionally;
// a paused Send must see the resuming XON no matter how much data is already
// backed up. Data frames are stashed in the backlog for the next Recv so
// nothing is ever dropped; a frame stashed past the configured capacity is
// marked with FlagBufferOverflow.
func (d *Driver) absorbControl() {
	if d.config.Direction&DirectionRx == 0 {
		return
	}
	status := d.regs.ReadStatus()
	if status&hal.StatusRxComplete == 0 {
		return
	}
	flags := decodeFlags(status)
	b := d.regs.ReadData()
	switch b {
	case d.config.XON:
		d.txPermitted.Store(true)
	case d.config.XOFF:
		d.txPermitted.Store(false)
	default:
		d.rxMu.Lock()
		if len(d.rxq) >= d.config.ReceiveBuffer {
			flags |= FlagBufferOverflow
		}
		d.rxq = append(d.rxq, pendingFrame{b: b, flags: flags})
		d.rxMu.Unlock()
	}
}

// updateRTS re-evaluates the Ready-to-Send output from the current receive
// backlog: deasserted while local capacity is exhausted, asserted otherwise.
func (d *Driver) updateRTS() {
	if d.config.FlowControl != FlowControlHardware {
		return
	}
	d.rxMu.Lock()
	backlog := len(d.rxq)
	d.rxMu.Unlock()
	if d.regs.ReadStatus()&hal.StatusRxComplete != 0 {
		backlog++
	}
	d.config.RTS.Set(backlog < d.config.ReceiveBuffer)
}

// Status returns the error flags of the pending receive frame without
// consuming it. It returns zero flags when nothing is pending.
func (d *Driver) Status() Flags {
	if d.isClosed() || d.config.Direction&DirectionRx == 0 {
		return 0
	}
	d.rxMu.Lock()
	if len(d.rxq) > 0 {
		flags := d.rxq[0].flags
		d.rxMu.Unlock()
		return flags
	}
	d.rxMu.Unlock()

	status := d.regs.ReadStatus()
	if status&hal.StatusRxComplete == 0 {
		return 0
	}
	return decodeFlags(status)
}

// Clear discards the software backlog and any frame pending in hardware,
// together with their error flags, and re-asserts receive capacity. A
// subsequent Recv blocks for new data.
func (d *Driver) Clear() error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrClosed
	}
	if d.config.Direction&DirectionRx == 0 {
		d.mu.RUnlock()
		return ErrRxDisabled
	}
	d.mu.RUnlock()

	d.rxMu.Lock()
	d.rxq = d.rxq[:0]
	d.rxMu.Unlock()
	for d.regs.ReadStatus()&hal.StatusRxComplete != 0 {
		d.regs.ReadData()
	}
	if d.config.FlowControl == FlowControlHardware {
		d.config.RTS.Set(true)
	}
	return nil
}
