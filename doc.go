// Package uart implements a polling-driven UART driver on top of an abstract
// hardware register interface, with configurable frame format, software
// (XON/XOFF) and hardware (RTS/CTS) flow control, and an optional
// stream-style text adapter.
//
// The driver targets the polling model of small microcontroller USARTs:
// every blocking operation is a busy-wait on a hardware readiness bit, there
// is no interrupt path and no DMA. The register layer is abstracted behind
// the hal package; the sim package provides an in-memory peripheral for
// tests and demos, and hostport bridges a real Linux tty.
//
// # Basic Usage
//
// Open a driver with default configuration (12 MHz clock, 9600 baud, 8N1):
//
//	a, b := sim.NewLoopback()
//	drv, err := uart.Open(a)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	drv.Send(0x41)
//	byte, flags, err := drv.Recv()
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	drv, err := uart.Open(regs,
//	    uart.WithClock(16_000_000),
//	    uart.WithBaudRate(115200),
//	    uart.WithParity(uart.ParityEven),
//	    uart.WithStopBits(2),
//	    uart.WithFlowControl(uart.FlowControlSoftware),
//	    uart.WithEcho(true),
//	)
//
// Open validates that the target baud rate is achievable from the clock
// within the peripheral's divisor range and fails with ErrBaudUnachievable
// otherwise; the line is never mis-clocked.
//
// # Error Flags
//
// Each received byte carries advisory flags (frame error, overrun, parity
// error, buffer overflow) captured at the moment of reception. Flags never
// withhold the byte; the caller decides how to treat a flagged frame:
//
//	b, flags, err := drv.Recv()
//	if !flags.OK() {
//	    log.Printf("flagged frame %#02x: %s", b, flags)
//	}
//
// # Flow Control
//
// Software mode absorbs XON/XOFF bytes from the peer and suppresses
// transmission while paused, by blocking rather than dropping. Hardware mode
// polls the CTS input before every transmitted byte and drives the RTS
// output from local receive capacity:
//
//	rts, cts := port.Pins()
//	drv, err := uart.Open(port,
//	    uart.WithFlowControl(uart.FlowControlHardware),
//	    uart.WithHandshakePins(rts, cts),
//	)
//
// The Handshake operation reads the current peer state and can force a local
// ready/pause transition.
//
// # Blocking and Cancellation
//
// Send and Recv block without timeout, matching the polling hardware model.
// Callers needing bounded latency wrap them via SendContext and RecvContext:
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//	b, flags, err := drv.RecvContext(ctx)
//
// # Streams
//
// When a stream binding is configured the driver satisfies io.Reader,
// io.Writer, io.ByteReader, io.ByteWriter and io.StringWriter, built
// directly on Send and Recv:
//
//	drv.Printf("temp=%d\r\n", 23)
//	line, err := drv.ReadLine()
//
// # Ownership
//
// A driver owns its register file exclusively between Open and Close;
// opening a second driver on the same peripheral fails with
// ErrPeripheralInUse. Each driver supports one logical thread of control.
package uart
