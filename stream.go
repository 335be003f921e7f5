package uart

import (
	"context"
	"fmt"
	"io"

	"github.com/0x007E/hal-avr-mega-uart/hal"
)

// Stream adapter: maps the byte-level driver operations onto the usual Go
// stream conventions so the driver can back fmt.Fprintf, bufio.Scanner and
// friends. Availability is controlled by the configured StdMode.

var (
	_ io.Reader       = (*Driver)(nil)
	_ io.Writer       = (*Driver)(nil)
	_ io.ByteReader   = (*Driver)(nil)
	_ io.ByteWriter   = (*Driver)(nil)
	_ io.StringWriter = (*Driver)(nil)
)

func (m StdMode) canWrite() bool {
	return m == StdModeReadWrite || m == StdModeWriteOnly
}

func (m StdMode) canRead() bool {
	return m == StdModeReadWrite || m == StdModeReadOnly
}

// Write implements io.Writer on the transmit path. Every byte goes through
// Send with its blocking and flow control semantics.
func (d *Driver) Write(p []byte) (int, error) {
	if !d.config.StdMode.canWrite() {
		return 0, ErrStreamDisabled
	}
	for n, b := range p {
		if _, err := d.Send(b); err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// WriteString implements io.StringWriter.
func (d *Driver) WriteString(s string) (int, error) {
	return d.Write([]byte(s))
}

// WriteByte implements io.ByteWriter.
func (d *Driver) WriteByte(b byte) error {
	if !d.config.StdMode.canWrite() {
		return ErrStreamDisabled
	}
	_, err := d.Send(b)
	return err
}

// Printf formats in the manner of fmt.Printf and transmits the result.
func (d *Driver) Printf(format string, a ...any) (int, error) {
	if !d.config.StdMode.canWrite() {
		return 0, ErrStreamDisabled
	}
	return fmt.Fprintf(writerOnly{d}, format, a...)
}

// writerOnly hides the driver's Read method from fmt, which would otherwise
// detect an io.ReadWriter where only the transmit side is wanted.
type writerOnly struct{ d *Driver }

func (w writerOnly) Write(p []byte) (int, error) {
	for n, b := range p {
		if _, err := w.d.Send(b); err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// Read implements io.Reader on the receive path. It blocks until at least
// one byte is available, then returns whatever is immediately pending
// without further blocking. Error flags are dropped at this layer; callers
// that need them use Recv directly.
func (d *Driver) Read(p []byte) (int, error) {
	if !d.config.StdMode.canRead() {
		return 0, ErrStreamDisabled
	}
	if len(p) == 0 {
		return 0, nil
	}
	b, _, err := d.Recv()
	if err != nil {
		return 0, err
	}
	p[0] = b
	n := 1
	for n < len(p) {
		b, ok := d.tryRecv()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
func (d *Driver) ReadByte() (byte, error) {
	if !d.config.StdMode.canRead() {
		return 0, ErrStreamDisabled
	}
	b, _, err := d.Recv()
	return b, err
}

// ReadLine receives bytes until a line feed and returns the line without its
// trailing CR/LF.
func (d *Driver) ReadLine() (string, error) {
	if !d.config.StdMode.canRead() {
		return "", ErrStreamDisabled
	}
	var line []byte
	for {
		b, _, err := d.Recv()
		if err != nil {
			return string(line), err
		}
		if b == '\n' {
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			return string(line), nil
		}
		line = append(line, b)
	}
}

// tryRecv returns a pending byte without blocking. Control bytes and echo
// are handled the same way Recv handles them.
func (d *Driver) tryRecv() (byte, bool) {
	if b, _, ok := d.takePending(); ok {
		d.finishRecv(b)
		return b, true
	}
	for {
		status := d.regs.ReadStatus()
		if status&hal.StatusRxComplete == 0 {
			return 0, false
		}
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
		d.finishRecv(b)
		return b, true
	}
}

func (d *Driver) finishRecv(b byte) {
	if d.config.FlowControl == FlowControlHardware {
		d.updateRTS()
	}
	if d.config.Echo && d.config.Direction&DirectionTx != 0 {
		_, _ = d.transmit(context.Background(), b)
	}
}
