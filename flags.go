package uart

import (
	"strings"

	"github.com/0x007E/hal-avr-mega-uart/hal"
)

// Flags is the set of advisory error conditions captured for one received
// frame. Flags never block delivery of the byte they describe and are valid
// only for the Recv call that returned them.
type Flags uint8

const (
	// FlagFrameError marks a stop bit sampled at the wrong level.
	FlagFrameError Flags = 1 << iota
	// FlagDataOverrun marks that at least one earlier frame was lost before
	// this one was read.
	FlagDataOverrun
	// FlagParityError marks a parity mismatch.
	FlagParityError
	// FlagBufferOverflow marks that the software receive backlog was full
	// when this frame arrived.
	FlagBufferOverflow
)

// OK reports whether no error condition is set.
func (f Flags) OK() bool { return f == 0 }

func (f Flags) String() string {
	if f == 0 {
		return "ok"
	}
	var parts []string
	if f&FlagFrameError != 0 {
		parts = append(parts, "frame-error")
	}
	if f&FlagDataOverrun != 0 {
		parts = append(parts, "overrun")
	}
	if f&FlagParityError != 0 {
		parts = append(parts, "parity-error")
	}
	if f&FlagBufferOverflow != 0 {
		parts = append(parts, "buffer-overflow")
	}
	return strings.Join(parts, "|")
}

// decodeFlags extracts the per-frame error bits from a status word.
func decodeFlags(status uint8) Flags {
	var f Flags
	if status&hal.StatusFrameError != 0 {
		f |= FlagFrameError
	}
	if status&hal.StatusOverrun != 0 {
		f |= FlagDataOverrun
	}
	if status&hal.StatusParityError != 0 {
		f |= FlagParityError
	}
	return f
}
