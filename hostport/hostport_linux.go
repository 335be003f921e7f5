//go:build linux

// Package hostport bridges a Linux tty onto the hal register interface so
// the polling driver can run against a real serial device. The baud divisor
// is mapped back to the nearest rate the kernel supports; per-frame error
// flags are not observable through termios, so received frames always report
// clear flags.
package hostport

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/0x007E/hal-avr-mega-uart/hal"
)

// Port implements hal.Registers on top of a tty file descriptor.
type Port struct {
	mu      sync.Mutex
	fd      int
	clockHz int
	closed  bool

	rxData byte
	rxFull bool
}

var _ hal.Registers = (*Port)(nil)

type baudEntry struct {
	rate int
	code uint32
}

var baudTable = []baudEntry{
	{300, unix.B300}, {600, unix.B600}, {1200, unix.B1200},
	{2400, unix.B2400}, {4800, unix.B4800}, {9600, unix.B9600},
	{19200, unix.B19200}, {38400, unix.B38400}, {57600, unix.B57600},
	{115200, unix.B115200}, {230400, unix.B230400}, {460800, unix.B460800},
	{921600, unix.B921600},
}

// nearestBaud picks the supported rate closest to the effective rate the
// divisor would produce.
func nearestBaud(rate int) baudEntry {
	best := baudTable[0]
	bestDelta := delta(rate, best.rate)
	for _, e := range baudTable[1:] {
		if d := delta(rate, e.rate); d < bestDelta {
			best, bestDelta = e, d
		}
	}
	return best
}

func delta(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// Open opens the tty in raw non-blocking mode. clockHz must match the clock
// the driver is configured with so divisor values translate back to rates.
func Open(path string, clockHz int) (*Port, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to get termios: %w", err)
	}
	// Raw mode, no input/output/line processing.
	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set termios: %w", err)
	}
	return &Port{fd: fd, clockHz: clockHz}, nil
}

// Close releases the file descriptor.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.fd)
}

func (p *Port) updateTermios(f func(*unix.Termios)) {
	termios, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return
	}
	f(termios)
	unix.IoctlSetTermios(p.fd, unix.TCSETS, termios)
}

// SetBaudDivisor translates the fractional divisor back to a rate and
// applies the nearest supported termios speed.
func (p *Port) SetBaudDivisor(div uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if div == 0 {
		return
	}
	eff := int(4 * int64(p.clockHz) / int64(div))
	entry := nearestBaud(eff)
	p.updateTermios(func(t *unix.Termios) {
		t.Cflag = (t.Cflag &^ unix.CBAUD) | entry.code
		t.Ispeed = entry.code
		t.Ospeed = entry.code
	})
}

// SetFrameFormat decodes the hal frame word into termios character size,
// stop bit and parity settings. 9-bit characters are clamped to 8, the
// widest size termios supports.
func (p *Port) SetFrameFormat(format uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateTermios(func(t *unix.Termios) {
		t.Cflag &^= unix.CSIZE | unix.CSTOPB | unix.PARENB | unix.PARODD
		switch format & 0x07 {
		case hal.FrameSize5:
			t.Cflag |= unix.CS5
		case hal.FrameSize6:
			t.Cflag |= unix.CS6
		case hal.FrameSize7:
			t.Cflag |= unix.CS7
		default:
			t.Cflag |= unix.CS8
		}
		if format&hal.FrameStop2 != 0 {
			t.Cflag |= unix.CSTOPB
		}
		switch format & 0x30 {
		case hal.FrameParityEven:
			t.Cflag |= unix.PARENB
		case hal.FrameParityOdd:
			t.Cflag |= unix.PARENB | unix.PARODD
		}
	})
}

// SetControl maps the receiver enable bit onto CREAD. The kernel has no
// switch for the transmitter alone.
func (p *Port) SetControl(ctrl uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateTermios(func(t *unix.Termios) {
		if ctrl&hal.ControlRxEnable != 0 {
			t.Cflag |= unix.CREAD
		} else {
			t.Cflag &^= unix.CREAD
		}
	})
}

// ReadStatus reports the transmit register as empty (the kernel buffers
// writes) and polls the fd for a pending receive byte.
func (p *Port) ReadStatus() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := hal.StatusDataEmpty
	if p.closed {
		return 0
	}
	if !p.rxFull {
		var buf [1]byte
		n, err := unix.Read(p.fd, buf[:])
		if err == nil && n == 1 {
			p.rxData = buf[0]
			p.rxFull = true
		}
	}
	if p.rxFull {
		status |= hal.StatusRxComplete
	}
	return status
}

func (p *Port) ReadData() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.rxData
	p.rxFull = false
	return b
}

func (p *Port) WriteData(b byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	buf := [1]byte{b}
	unix.Write(p.fd, buf[:])
}

// Pins returns the RTS output and CTS input views of the port's modem
// control lines for hardware flow control.
func (p *Port) Pins() (rts, cts hal.Pin) {
	return &modemPin{port: p, bit: unix.TIOCM_RTS, output: true},
		&modemPin{port: p, bit: unix.TIOCM_CTS}
}

// modemPin maps a hal.Pin onto one TIOCM modem control bit.
type modemPin struct {
	port   *Port
	bit    int
	output bool
}

var _ hal.Pin = (*modemPin)(nil)

func (m *modemPin) ConfigureOutput() {}
func (m *modemPin) ConfigureInput()  {}

func (m *modemPin) Set(high bool) {
	if !m.output {
		return
	}
	if high {
		unix.IoctlSetInt(m.port.fd, unix.TIOCMBIS, m.bit)
		return
	}
	unix.IoctlSetInt(m.port.fd, unix.TIOCMBIC, m.bit)
}

func (m *modemPin) Get() bool {
	status, err := unix.IoctlGetInt(m.port.fd, unix.TIOCMGET)
	if err != nil {
		return false
	}
	return status&m.bit != 0
}
