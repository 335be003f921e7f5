package uart

import "context"

// HandshakeState describes one side of the flow control handshake. As a
// request it selects an operation on the local Ready-to-Send state; as a
// result it reports whether the peer currently clears us to send.
type HandshakeState int

const (
	// HandshakeQuery reads the current state without changing anything.
	HandshakeQuery HandshakeState = iota
	// HandshakeReady forces the local side to signal receive capacity:
	// asserting RTS in hardware mode, transmitting XON in software mode.
	HandshakeReady
	// HandshakePause forces the local side to signal exhaustion:
	// deasserting RTS in hardware mode, transmitting XOFF in software mode.
	HandshakePause
)

func (h HandshakeState) String() string {
	switch h {
	case HandshakeQuery:
		return "query"
	case HandshakeReady:
		return "ready"
	case HandshakePause:
		return "pause"
	default:
		return "unknown"
	}
}

// Handshake queries and optionally manipulates the flow control state. This
// is the only operation that changes flow control outside the automatic
// rules; a forced transition is not latched and the automatic rules resume
// on the next receive.
//
// The returned state reports the transmit side of the handshake:
// HandshakeReady when the peer currently clears us to send (CTS asserted in
// hardware mode, no outstanding XOFF in software mode), HandshakePause
// otherwise. With flow control disabled the result is always HandshakeReady.
func (d *Driver) Handshake(req HandshakeState) (HandshakeState, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return HandshakePause, ErrClosed
	}
	d.mu.RUnlock()

	switch d.config.FlowControl {
	case FlowControlNone:
		return HandshakeReady, nil

	case FlowControlSoftware:
		if req != HandshakeQuery && d.config.Direction&DirectionTx == 0 {
			// A forced transition is an XON/XOFF transmission; a driver
			// without a transmitter cannot signal the peer.
			return HandshakePause, ErrTxDisabled
		}
		switch req {
		case HandshakeReady:
			if err := d.rawTransmit(context.Background(), d.config.XON); err != nil {
				return HandshakePause, err
			}
		case HandshakePause:
			if err := d.rawTransmit(context.Background(), d.config.XOFF); err != nil {
				return HandshakePause, err
			}
		}
		// Pick up a control byte the peer may already have sent.
		d.absorbControl()
		if d.txPermitted.Load() {
			return HandshakeReady, nil
		}
		return HandshakePause, nil

	case FlowControlHardware:
		switch req {
		case HandshakeReady:
			d.config.RTS.Set(true)
		case HandshakePause:
			d.config.RTS.Set(false)
		}
		if d.config.CTS.Get() {
			return HandshakeReady, nil
		}
		return HandshakePause, nil
	}
	return HandshakePause, ErrInvalidConfig
}
