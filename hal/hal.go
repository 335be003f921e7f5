// Package hal defines the hardware access layer consumed by the uart driver:
// an abstract register file for one USART peripheral and a digital pin
// abstraction for handshake lines. Implementations exist for an in-memory
// simulated peripheral (sim) and a host tty bridge (hostport).
package hal

// Status register bits. The layout follows the common USART convention of a
// combined readiness/error status word where the error bits describe the
// frame currently held in the receive data register.
const (
	// StatusRxComplete indicates an unread frame in the receive data register.
	StatusRxComplete uint8 = 1 << 7
	// StatusOverrun indicates a frame was lost because the receive data
	// register was still occupied when the next frame completed.
	StatusOverrun uint8 = 1 << 6
	// StatusDataEmpty indicates the transmit data register can accept a byte.
	StatusDataEmpty uint8 = 1 << 5
	// StatusFrameError indicates a stop bit sampled at the wrong level.
	StatusFrameError uint8 = 1 << 2
	// StatusParityError indicates a parity mismatch on the received frame.
	StatusParityError uint8 = 1 << 1
)

// Control register bits enabling the receiver and transmitter sub-units.
const (
	ControlRxEnable uint8 = 1 << 7
	ControlTxEnable uint8 = 1 << 6
)

// Frame format register encoding: character size in bits 0-2, stop bit mode
// in bit 3, parity mode in bits 4-5.
const (
	FrameSize5 uint8 = 0x00
	FrameSize6 uint8 = 0x01
	FrameSize7 uint8 = 0x02
	FrameSize8 uint8 = 0x03
	FrameSize9 uint8 = 0x07

	FrameStop2 uint8 = 1 << 3

	FrameParityEven uint8 = 0x20
	FrameParityOdd  uint8 = 0x30
)

// Registers is the register file of one USART peripheral. A driver instance
// owns its Registers exclusively between init and disable; implementations
// are not required to tolerate concurrent drivers.
type Registers interface {
	// SetBaudDivisor programs the fractional baud rate generator.
	SetBaudDivisor(div uint16)

	// SetFrameFormat programs character size, parity and stop bits using the
	// Frame* encoding above.
	SetFrameFormat(format uint8)

	// SetControl enables or disables the receiver and transmitter sub-units.
	SetControl(ctrl uint8)

	// ReadStatus returns the status word. The error bits belong to the frame
	// currently pending in the receive data register and must be sampled
	// before ReadData consumes that frame.
	ReadStatus() uint8

	// ReadData consumes the pending receive frame and clears its error bits.
	ReadData() byte

	// WriteData loads the transmit data register. Callers must observe
	// StatusDataEmpty before writing.
	WriteData(b byte)
}

// Pin is a single digital I/O line, used for the RTS/CTS handshake pair.
type Pin interface {
	// ConfigureOutput switches the pin to output mode.
	ConfigureOutput()
	// ConfigureInput switches the pin to input mode.
	ConfigureInput()
	// Set drives the pin level. Only meaningful in output mode.
	Set(high bool)
	// Get samples the current pin level.
	Get() bool
}
