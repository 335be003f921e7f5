package uart

import (
	"time"

	"github.com/0x007E/hal-avr-mega-uart/hal"
)

// Parity represents the parity mode of a frame.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "unknown"
	}
}

// FlowControl represents the flow control mode.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlSoftware
	FlowControlHardware
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlSoftware:
		return "software"
	case FlowControlHardware:
		return "hardware"
	default:
		return "unknown"
	}
}

// Direction selects which sub-units of the peripheral are enabled.
type Direction int

const (
	DirectionRx Direction = 1 << iota
	DirectionTx

	DirectionBoth = DirectionRx | DirectionTx
)

// StdMode selects which stream operations (Read/Write, Printf/ReadLine) are
// bound to the driver.
type StdMode int

const (
	StdModeNone StdMode = iota
	StdModeReadWrite
	StdModeWriteOnly
	StdModeReadOnly
)

// Default XON/XOFF control bytes (ASCII DC1/DC3).
const (
	DefaultXON  byte = 0x11
	DefaultXOFF byte = 0x13
)

// Config holds the configuration for a driver instance. It is fixed for the
// lifetime of an open driver.
type Config struct {
	ClockHz       int
	BaudRate      int
	DataBits      int // 5-9
	StopBits      int // 1 or 2
	Parity        Parity
	Echo          bool
	FlowControl   FlowControl
	Direction     Direction
	StdMode       StdMode
	XON           byte
	XOFF          byte
	ReceiveBuffer int           // receive capacity in frames, hardware register included
	PollInterval  time.Duration // 0 derives a tick from the baud rate

	// Handshake pins, required for FlowControlHardware.
	RTS hal.Pin
	CTS hal.Pin
}

// Option is a functional option for configuring a driver
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults: a 12 MHz
// clock at 9600 baud, 8N1, both directions enabled, streams bound for read
// and write, no echo and no flow control.
func DefaultConfig() Config {
	return Config{
		ClockHz:       12_000_000,
		BaudRate:      9600,
		DataBits:      8,
		StopBits:      1,
		Parity:        ParityNone,
		Echo:          false,
		FlowControl:   FlowControlNone,
		Direction:     DirectionBoth,
		StdMode:       StdModeReadWrite,
		XON:           DefaultXON,
		XOFF:          DefaultXOFF,
		ReceiveBuffer: 1,
	}
}

// WithClock sets the peripheral clock frequency in Hz
func WithClock(hz int) Option {
	return func(c *Config) error {
		if hz <= 0 {
			return ErrInvalidConfig
		}
		c.ClockHz = hz
		return nil
	}
}

// WithBaudRate sets the target baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 {
			return ErrInvalidConfig
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5-9)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 9 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityOdd {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithEcho enables automatic retransmission of every received byte
func WithEcho(echo bool) Option {
	return func(c *Config) error {
		c.Echo = echo
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if fc < FlowControlNone || fc > FlowControlHardware {
			return ErrInvalidConfig
		}
		c.FlowControl = fc
		return nil
	}
}

// WithDirection enables only the given sub-units (transmit and/or receive)
func WithDirection(dir Direction) Option {
	return func(c *Config) error {
		if dir&DirectionBoth == 0 {
			return ErrInvalidConfig
		}
		c.Direction = dir
		return nil
	}
}

// WithStdMode sets the stream binding mode
func WithStdMode(mode StdMode) Option {
	return func(c *Config) error {
		if mode < StdModeNone || mode > StdModeReadOnly {
			return ErrInvalidConfig
		}
		c.StdMode = mode
		return nil
	}
}

// WithFlowChars overrides the XON and XOFF control bytes
func WithFlowChars(xon, xoff byte) Option {
	return func(c *Config) error {
		if xon == xoff {
			return ErrInvalidConfig
		}
		c.XON = xon
		c.XOFF = xoff
		return nil
	}
}

// WithReceiveBuffer sets the receive capacity in frames that hardware flow
// control advertises through RTS. The frame pending in the hardware register
// counts against it, so the default of one frame deasserts RTS as soon as a
// frame is waiting
func WithReceiveBuffer(frames int) Option {
	return func(c *Config) error {
		if frames < 1 {
			return ErrInvalidConfig
		}
		c.ReceiveBuffer = frames
		return nil
	}
}

// WithHandshakePins provides the RTS output and CTS input pins used by
// hardware flow control
func WithHandshakePins(rts, cts hal.Pin) Option {
	return func(c *Config) error {
		if rts == nil || cts == nil {
			return ErrInvalidConfig
		}
		c.RTS = rts
		c.CTS = cts
		return nil
	}
}

// WithPollInterval overrides the busy-wait tick used while blocking on
// hardware readiness
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.PollInterval = d
		return nil
	}
}

// validate checks cross-field constraints that individual options cannot see.
func (c *Config) validate() error {
	if c.ClockHz <= 0 || c.BaudRate <= 0 {
		return ErrInvalidConfig
	}
	if c.DataBits < 5 || c.DataBits > 9 {
		return ErrInvalidConfig
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return ErrInvalidConfig
	}
	if c.FlowControl == FlowControlHardware && (c.RTS == nil || c.CTS == nil) {
		return ErrHandshakePinsRequired
	}
	if c.FlowControl == FlowControlSoftware && c.Direction&DirectionRx == 0 {
		// XON/XOFF from the peer arrive on the receive path.
		return ErrInvalidConfig
	}
	if c.ReceiveBuffer < 1 {
		return ErrInvalidConfig
	}
	return nil
}

// pollTick returns the busy-wait interval: roughly half a bit time at the
// configured baud rate, bounded below to avoid a pure spin.
func (c *Config) pollTick() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	perBit := time.Second / time.Duration(c.BaudRate)
	t := perBit / 2
	if t < time.Microsecond {
		t = time.Microsecond
	}
	return t
}

// frameFormat encodes the frame configuration into the hal register layout.
func (c *Config) frameFormat() uint8 {
	var format uint8
	switch c.DataBits {
	case 5:
		format = hal.FrameSize5
	case 6:
		format = hal.FrameSize6
	case 7:
		format = hal.FrameSize7
	case 8:
		format = hal.FrameSize8
	case 9:
		format = hal.FrameSize9
	}
	if c.StopBits == 2 {
		format |= hal.FrameStop2
	}
	switch c.Parity {
	case ParityEven:
		format |= hal.FrameParityEven
	case ParityOdd:
		format |= hal.FrameParityOdd
	}
	return format
}
