package uart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0x007E/hal-avr-mega-uart/hal"
	"github.com/0x007E/hal-avr-mega-uart/sim"
)

func TestOpenAppliesConfiguration(t *testing.T) {
	p := sim.New()
	drv, err := Open(p,
		WithClock(12_000_000),
		WithBaudRate(9600),
		WithDataBits(7),
		WithParity(ParityEven),
		WithStopBits(2),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	if p.Divisor() != 5000 {
		t.Errorf("Expected divisor 5000, got %d", p.Divisor())
	}
	want := hal.FrameSize7 | hal.FrameStop2 | hal.FrameParityEven
	if p.FrameFormat() != want {
		t.Errorf("Expected frame format %#02x, got %#02x", want, p.FrameFormat())
	}
	if p.Control() != hal.ControlRxEnable|hal.ControlTxEnable {
		t.Errorf("Expected both sub-units enabled, got %#02x", p.Control())
	}
}

func TestOpenRejectsUnachievableBaud(t *testing.T) {
	p := sim.New()
	_, err := Open(p, WithClock(12_000_000), WithBaudRate(921600))
	if !errors.Is(err, ErrBaudUnachievable) {
		t.Fatalf("Expected ErrBaudUnachievable, got %v", err)
	}
	// The peripheral must not have been touched.
	if p.Divisor() != 0 || p.Control() != 0 {
		t.Error("Peripheral configured despite failed Open")
	}
}

func TestOpenExclusivity(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := Open(p); !errors.Is(err, ErrPeripheralInUse) {
		t.Errorf("Expected ErrPeripheralInUse, got %v", err)
	}
	if err := drv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	drv2, err := Open(p)
	if err != nil {
		t.Fatalf("Reopen after Close failed: %v", err)
	}
	drv2.Close()
}

func TestCloseDisablesPeripheral(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := drv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if p.Control() != 0 {
		t.Errorf("Expected sub-units disabled, got %#02x", p.Control())
	}
	if err := drv.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on second Close, got %v", err)
	}
	if _, err := drv.Send('x'); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Send, got %v", err)
	}
	if _, _, err := drv.Recv(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Recv, got %v", err)
	}
}

func TestDirectionCapability(t *testing.T) {
	p := sim.New()
	drv, err := Open(p, WithDirection(DirectionRx))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	if _, err := drv.Send('x'); !errors.Is(err, ErrTxDisabled) {
		t.Errorf("Expected ErrTxDisabled, got %v", err)
	}

	q := sim.New()
	txOnly, err := Open(q, WithDirection(DirectionTx))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer txOnly.Close()

	if _, _, err := txOnly.Recv(); !errors.Is(err, ErrRxDisabled) {
		t.Errorf("Expected ErrRxDisabled, got %v", err)
	}
	if err := txOnly.Clear(); !errors.Is(err, ErrRxDisabled) {
		t.Errorf("Expected ErrRxDisabled from Clear, got %v", err)
	}
}

func TestLoopbackRoundTrip(t *testing.T) {
	a, b := sim.NewLoopback()
	local, err := Open(a)
	if err != nil {
		t.Fatalf("Open local failed: %v", err)
	}
	defer local.Close()
	remote, err := Open(b)
	if err != nil {
		t.Fatalf("Open remote failed: %v", err)
	}
	defer remote.Close()

	sent, err := local.Send(0x41)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sent != 0x41 {
		t.Errorf("Send returned %#02x, want 0x41", sent)
	}

	got, flags, err := remote.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if got != 0x41 {
		t.Errorf("Recv = %#02x, want 0x41", got)
	}
	if !flags.OK() {
		t.Errorf("Expected clear flags, got %v", flags)
	}
}

func TestSendWritesExactlyOnce(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	p.SetTransmitBusy(true)
	done := make(chan error, 1)
	go func() {
		_, err := drv.Send(0x55)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if p.Writes() != 0 {
		t.Fatal("Send wrote while data register was busy")
	}

	p.SetTransmitBusy(false)
	if err := <-done; err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if p.Writes() != 1 {
		t.Errorf("Expected exactly one data register write, got %d", p.Writes())
	}
	if p.LastWrite() != 0x55 {
		t.Errorf("Expected 0x55 written, got %#02x", p.LastWrite())
	}
}

func TestRecvBlocksUntilData(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := drv.RecvContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded on empty receive, got %v", err)
	}

	p.InjectRx('z')
	b, flags, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'z' || !flags.OK() {
		t.Errorf("Recv = (%#02x, %v), want ('z', ok)", b, flags)
	}
}

func TestErrorFlagsScopedToFrame(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	// A second frame completing while the first is unread raises overrun.
	p.InjectRx(0x01)
	p.InjectRx(0x02)

	b, flags, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 0x01 {
		t.Errorf("Expected surviving byte 0x01, got %#02x", b)
	}
	if flags&FlagDataOverrun == 0 {
		t.Errorf("Expected overrun flag, got %v", flags)
	}

	// The flag must not persist into the next frame.
	p.InjectRx(0x03)
	b, flags, err = drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 0x03 || !flags.OK() {
		t.Errorf("Recv = (%#02x, %v), want (0x03, ok)", b, flags)
	}
}

func TestInjectedErrorFlags(t *testing.T) {
	tests := []struct {
		name   string
		inject uint8
		want   Flags
	}{
		{"frame error", hal.StatusFrameError, FlagFrameError},
		{"parity error", hal.StatusParityError, FlagParityError},
		{"overrun", hal.StatusOverrun, FlagDataOverrun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sim.New()
			drv, err := Open(p)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer drv.Close()

			p.InjectError(tt.inject)
			p.InjectRx(0x7f)

			b, flags, err := drv.Recv()
			if err != nil {
				t.Fatalf("Recv failed: %v", err)
			}
			if b != 0x7f {
				t.Errorf("Flagged byte not delivered: got %#02x", b)
			}
			if flags != tt.want {
				t.Errorf("Flags = %v, want %v", flags, tt.want)
			}
		})
	}
}

func TestStatusPeeksWithoutConsuming(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	if flags := drv.Status(); flags != 0 {
		t.Errorf("Expected no flags on idle receiver, got %v", flags)
	}

	p.InjectError(hal.StatusFrameError)
	p.InjectRx('e')

	if flags := drv.Status(); flags != FlagFrameError {
		t.Errorf("Status = %v, want frame-error", flags)
	}
	// The peek must not have consumed the frame.
	b, flags, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'e' || flags != FlagFrameError {
		t.Errorf("Recv = (%#02x, %v), want ('e', frame-error)", b, flags)
	}
	if flags := drv.Status(); flags != 0 {
		t.Errorf("Expected clear status after consume, got %v", flags)
	}
}

func TestClearDiscardsPendingFrame(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	p.InjectError(hal.StatusParityError)
	p.InjectRx('d')
	if err := drv.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if p.RxPending() {
		t.Error("Frame still pending after Clear")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := drv.RecvContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected Recv to block for new data after Clear, got %v", err)
	}
}

func TestEcho(t *testing.T) {
	p := sim.New()
	drv, err := Open(p, WithEcho(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	p.InjectRx('h')
	b, _, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'h' {
		t.Errorf("Recv = %#02x, want 'h'", b)
	}
	if p.Writes() != 1 || p.LastWrite() != 'h' {
		t.Errorf("Expected echo of 'h', writes=%d last=%#02x", p.Writes(), p.LastWrite())
	}
}

func TestRecvUnblocksOnClose(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := drv.Recv()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	drv.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock on Close")
	}
}
