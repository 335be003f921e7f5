package uart

import "errors"

// Predefined error types for robust error handling
var (
	ErrInvalidConfig         = errors.New("invalid uart configuration")
	ErrBaudUnachievable      = errors.New("baud rate not achievable from clock frequency")
	ErrHandshakePinsRequired = errors.New("hardware flow control requires RTS and CTS pins")
	ErrPeripheralInUse       = errors.New("peripheral already owned by another driver")
	ErrClosed                = errors.New("driver is disabled")
	ErrTxDisabled            = errors.New("transmit direction not enabled")
	ErrRxDisabled            = errors.New("receive direction not enabled")
	ErrStreamDisabled        = errors.New("stream binding not enabled for this operation")
)
