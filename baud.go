package uart

// The peripheral uses a fractional baud rate generator in normal-speed
// asynchronous mode: the 16-bit BAUD register holds 64*fclk/(16*baud),
// i.e. 4*fclk/baud, with a minimum usable value of 64.
const (
	minDivisor = 64
	maxDivisor = 0xFFFF

	// baudToleranceMilli is the accepted deviation between the target and
	// effective baud rate, in thousandths (20 = 2.0%).
	baudToleranceMilli = 20
)

// StandardRates lists the common baud rates offered by the CLI and used by
// the divisor sweep tests.
var StandardRates = []int{
	300, 600, 1200, 2400, 4800, 9600, 19200, 38400, 57600,
	115200, 230400, 460800, 921600,
}

// Divisor computes the baud register value for the given clock and target
// baud rate. It returns ErrBaudUnachievable when the value falls outside the
// representable range or the effective rate deviates more than the accepted
// tolerance from the target.
func Divisor(clockHz, baud int) (uint16, error) {
	if clockHz <= 0 || baud <= 0 {
		return 0, ErrInvalidConfig
	}
	div := (4*int64(clockHz) + int64(baud)/2) / int64(baud)
	if div < minDivisor || div > maxDivisor {
		return 0, ErrBaudUnachievable
	}
	eff := effectiveRate(clockHz, uint16(div))
	delta := int64(eff) - int64(baud)
	if delta < 0 {
		delta = -delta
	}
	if delta*1000 > int64(baud)*baudToleranceMilli {
		return 0, ErrBaudUnachievable
	}
	return uint16(div), nil
}

// EffectiveBaud returns the actual baud rate produced by the divisor the
// generator would use for the given clock and target rate.
func EffectiveBaud(clockHz, baud int) (int, error) {
	div, err := Divisor(clockHz, baud)
	if err != nil {
		return 0, err
	}
	return effectiveRate(clockHz, div), nil
}

func effectiveRate(clockHz int, div uint16) int {
	return int((4*int64(clockHz) + int64(div)/2) / int64(div))
}
