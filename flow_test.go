package uart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0x007E/hal-avr-mega-uart/sim"
)

func TestSoftwareFlowXOFFBlocksSend(t *testing.T) {
	p := sim.New()
	drv, err := Open(p, WithFlowControl(FlowControlSoftware))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	// An XOFF already sitting in the receive register must suppress the
	// very next Send.
	p.InjectRx(DefaultXOFF)

	done := make(chan error, 1)
	go func() {
		_, err := drv.Send('x')
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if p.Writes() != 0 {
		t.Fatal("Send transmitted while paused by XOFF")
	}

	p.InjectRx(DefaultXON)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not resume after XON")
	}
	if p.Writes() != 1 || p.LastWrite() != 'x' {
		t.Errorf("Expected single write of 'x', writes=%d last=%#02x", p.Writes(), p.LastWrite())
	}
}

func TestSoftwareFlowControlBytesNeverSurface(t *testing.T) {
	p := sim.New()
	drv, err := Open(p, WithFlowControl(FlowControlSoftware))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	p.InjectRx(DefaultXON)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := drv.RecvContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("XON surfaced as data: %v", err)
	}

	p.InjectRx(DefaultXOFF)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if _, _, err := drv.RecvContext(ctx2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("XOFF surfaced as data: %v", err)
	}
}

func TestSoftwareFlowStashesDataWhilePaused(t *testing.T) {
	p := sim.New()
	drv, err := Open(p, WithFlowControl(FlowControlSoftware))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	p.InjectRx(DefaultXOFF)

	done := make(chan error, 1)
	go func() {
		_, err := drv.Send('y')
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// A data byte arriving while Send polls for XON must not be lost.
	p.InjectRx('d')
	time.Sleep(20 * time.Millisecond)
	p.InjectRx(DefaultXON)

	if err := <-done; err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	b, flags, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'd' || !flags.OK() {
		t.Errorf("Recv = (%#02x, %v), want ('d', ok)", b, flags)
	}
}

func TestSoftwareFlowResumesWithFullBacklog(t *testing.T) {
	p := sim.New()
	drv, err := Open(p, WithFlowControl(FlowControlSoftware))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	pausedSend := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := drv.SendContext(ctx, 'y')
		return err
	}

	p.InjectRx(DefaultXOFF)
	if err := pausedSend(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send while paused: err = %v, want deadline exceeded", err)
	}

	// Fill the one-frame backlog with a data byte, then resume. The XON
	// must be absorbed even though no backlog capacity is left.
	p.InjectRx('d')
	if err := pausedSend(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send with stashed data: err = %v, want deadline exceeded", err)
	}
	p.InjectRx(DefaultXON)

	if _, err := drv.Send('y'); err != nil {
		t.Fatalf("Send after XON with full backlog: %v", err)
	}
	if p.LastWrite() != 'y' {
		t.Errorf("peripheral transmitted %#02x, want 'y'", p.LastWrite())
	}

	b, flags, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'd' || !flags.OK() {
		t.Errorf("Recv = (%#02x, %v), want ('d', ok)", b, flags)
	}
}

func TestSoftwareFlowFlagsBacklogOverflow(t *testing.T) {
	p := sim.New()
	drv, err := Open(p, WithFlowControl(FlowControlSoftware))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	pausedSend := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := drv.SendContext(ctx, 'y')
		return err
	}

	p.InjectRx(DefaultXOFF)
	if err := pausedSend(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send while paused: err = %v, want deadline exceeded", err)
	}

	// The first data byte fits the one-frame backlog; the second exceeds it
	// and must come back marked, not dropped.
	p.InjectRx('a')
	if err := pausedSend(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send with first data byte: err = %v, want deadline exceeded", err)
	}
	p.InjectRx('b')
	if err := pausedSend(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send with second data byte: err = %v, want deadline exceeded", err)
	}
	p.InjectRx(DefaultXON)
	if _, err := drv.Send('y'); err != nil {
		t.Fatalf("Send after XON: %v", err)
	}

	b, flags, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'a' || !flags.OK() {
		t.Errorf("first Recv = (%#02x, %v), want ('a', ok)", b, flags)
	}

	b, flags, err = drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'b' || flags&FlagBufferOverflow == 0 {
		t.Errorf("second Recv = (%#02x, %v), want ('b', buffer-overflow)", b, flags)
	}
}

func TestHandshakeForceRequiresTransmitter(t *testing.T) {
	p := sim.New()
	drv, err := Open(p,
		WithFlowControl(FlowControlSoftware),
		WithDirection(DirectionRx),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	if _, err := drv.Handshake(HandshakePause); !errors.Is(err, ErrTxDisabled) {
		t.Errorf("forced pause without transmitter: err = %v, want ErrTxDisabled", err)
	}
	if _, err := drv.Handshake(HandshakeReady); !errors.Is(err, ErrTxDisabled) {
		t.Errorf("forced ready without transmitter: err = %v, want ErrTxDisabled", err)
	}
	if p.Writes() != 0 {
		t.Errorf("data register written %d times by a disabled transmitter", p.Writes())
	}

	// Querying needs no transmitter.
	if _, err := drv.Handshake(HandshakeQuery); err != nil {
		t.Errorf("Handshake query failed: %v", err)
	}
}

func TestCustomFlowChars(t *testing.T) {
	p := sim.New()
	drv, err := Open(p,
		WithFlowControl(FlowControlSoftware),
		WithFlowChars(0x05, 0x06),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	// The default control bytes are plain data under a custom pair.
	p.InjectRx(DefaultXOFF)
	b, _, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != DefaultXOFF {
		t.Errorf("Recv = %#02x, want default XOFF delivered as data", b)
	}

	p.InjectRx(0x06) // custom XOFF
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := drv.SendContext(ctx, 'x'); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected Send paused by custom XOFF, got %v", err)
	}
}

func TestHardwareFlowWaitsForCTS(t *testing.T) {
	p := sim.New()
	rts := sim.NewPin()
	ctsOut, ctsIn := sim.NewWire()
	drv, err := Open(p,
		WithFlowControl(FlowControlHardware),
		WithHandshakePins(rts, ctsIn),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	ctsOut.Set(false)
	done := make(chan error, 1)
	go func() {
		_, err := drv.Send('h')
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if p.Writes() != 0 {
		t.Fatal("Send wrote data register while CTS deasserted")
	}

	ctsOut.Set(true)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not proceed once CTS asserted")
	}
	if p.Writes() != 1 {
		t.Errorf("Expected one write, got %d", p.Writes())
	}
}

func TestHardwareFlowRTSTracksCapacity(t *testing.T) {
	p := sim.New()
	rtsOut, rtsView := sim.NewWire()
	ctsOut, ctsIn := sim.NewWire()
	drv, err := Open(p,
		WithFlowControl(FlowControlHardware),
		WithHandshakePins(rtsOut, ctsIn),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	if !rtsView.Get() {
		t.Fatal("RTS not asserted after Open")
	}

	// Hold the transmit path in its CTS poll loop so the driver keeps
	// re-evaluating capacity, then fill the one-frame backlog.
	ctsOut.Set(false)
	done := make(chan error, 1)
	go func() {
		_, err := drv.Send('q')
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)

	p.InjectRx('z')
	deadline := time.After(time.Second)
	for rtsView.Get() {
		select {
		case <-deadline:
			t.Fatal("RTS not deasserted with backlog full")
		case <-time.After(time.Millisecond):
		}
	}

	ctsOut.Set(true)
	if err := <-done; err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Consuming the pending frame recovers capacity.
	b, _, err := drv.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if b != 'z' {
		t.Errorf("Recv = %#02x, want 'z'", b)
	}
	if !rtsView.Get() {
		t.Error("RTS not re-asserted after frame consumed")
	}
}

func TestHandshakeDisabledMode(t *testing.T) {
	p := sim.New()
	drv, err := Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	state, err := drv.Handshake(HandshakeQuery)
	if err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	if state != HandshakeReady {
		t.Errorf("Expected ready with flow control disabled, got %v", state)
	}
}

func TestHandshakeHardwareForce(t *testing.T) {
	p := sim.New()
	rtsOut, rtsView := sim.NewWire()
	ctsOut, ctsIn := sim.NewWire()
	drv, err := Open(p,
		WithFlowControl(FlowControlHardware),
		WithHandshakePins(rtsOut, ctsIn),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer drv.Close()

	ctsOut.Set(true)
	state, err := drv.Handshake(HandshakePause)
	if err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	if rtsView.Get() {
		t.Error("RTS still asserted after forced pause")
	}
	if state != HandshakeReady {
		t.Errorf("Expected peer-ready (CTS asserted), got %v", state)
	}

	ctsOut.Set(false)
	state, err = drv.Handshake(HandshakeReady)
	if err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	if !rtsView.Get() {
		t.Error("RTS not asserted after forced ready")
	}
	if state != HandshakePause {
		t.Errorf("Expected peer-paused (CTS deasserted), got %v", state)
	}
}

func TestHandshakeSoftwareForceSendsControlByte(t *testing.T) {
	a, b := sim.NewLoopback()
	local, err := Open(a, WithFlowControl(FlowControlSoftware))
	if err != nil {
		t.Fatalf("Open local failed: %v", err)
	}
	defer local.Close()
	remote, err := Open(b, WithFlowControl(FlowControlSoftware))
	if err != nil {
		t.Fatalf("Open remote failed: %v", err)
	}
	defer remote.Close()

	if _, err := local.Handshake(HandshakePause); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	// The remote end must now be paused by the XOFF we transmitted.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := remote.SendContext(ctx, 'x'); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected remote paused after forced XOFF, got %v", err)
	}

	if _, err := local.Handshake(HandshakeReady); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	if _, err := remote.Send('x'); err != nil {
		t.Fatalf("Remote Send after XON failed: %v", err)
	}
}
