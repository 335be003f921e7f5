/*
Copyright © 2025 0x007E
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/sim"
)

// selftestCmd represents the selftest command
var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the driver scenario suite against simulated peripherals",
	Long: `Run a suite of driver scenarios against simulated peripherals.

Each scenario opens its own simulated link with a fixed 12 MHz clock and
exercises one driver behavior end to end: baud generation, loopback
delivery, error flag scoping, XON/XOFF and RTS/CTS flow control, status
inspection and the stream adapter.

The suite is self-contained and needs no hardware. It exits non-zero if
any scenario fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		scenarios := []struct {
			name string
			run  func() error
		}{
			{"baud divisor generation", selftestDivisor},
			{"loopback round trip", selftestLoopback},
			{"error flags scoped to frame", selftestErrorScoping},
			{"software flow pause and resume", selftestSoftwareFlow},
			{"hardware flow CTS gate", selftestHardwareFlow},
			{"status peek and clear", selftestStatusClear},
			{"stream formatted output", selftestStream},
		}

		passStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
		failStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
		nameStyle := lipgloss.NewStyle().Width(36)

		failed := 0
		for _, sc := range scenarios {
			err := sc.run()
			if err != nil {
				failed++
				fmt.Printf("%s %s  %v\n", failStyle.Render("✗ FAIL"), nameStyle.Render(sc.name), err)
				continue
			}
			fmt.Printf("%s %s\n", passStyle.Render("✓ PASS"), nameStyle.Render(sc.name))
		}

		fmt.Println()
		if failed > 0 {
			fmt.Println(failStyle.Render(fmt.Sprintf("%d of %d scenarios failed", failed, len(scenarios))))
			os.Exit(1)
		}
		fmt.Println(passStyle.Render(fmt.Sprintf("All %d scenarios passed", len(scenarios))))
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

func selftestDivisor() error {
	div, err := uart.Divisor(12_000_000, 9600)
	if err != nil {
		return err
	}
	if div != 5000 {
		return fmt.Errorf("12 MHz / 9600 baud: divisor %d, want 5000", div)
	}
	if _, err := uart.Divisor(12_000_000, 2_000_000); err == nil {
		return errors.New("2 Mbaud at 12 MHz should be unachievable")
	}
	return nil
}

func selftestLoopback() error {
	local, remote, err := openSelftestPair()
	if err != nil {
		return err
	}
	defer local.Close()
	defer remote.Close()

	if _, err := local.Send(0x55); err != nil {
		return err
	}
	b, flags, err := remote.Recv()
	if err != nil {
		return err
	}
	if b != 0x55 {
		return fmt.Errorf("received 0x%02X, want 0x55", b)
	}
	if !flags.OK() {
		return fmt.Errorf("clean frame reported flags %s", flags)
	}
	return nil
}

func selftestErrorScoping() error {
	periph := sim.New()
	drv, err := uart.Open(periph)
	if err != nil {
		return err
	}
	defer drv.Close()

	periph.InjectFrameError()
	periph.InjectRx('a')
	_, flags, err := drv.Recv()
	if err != nil {
		return err
	}
	if flags&uart.FlagFrameError == 0 {
		return fmt.Errorf("injected frame error not reported, got %s", flags)
	}

	periph.InjectRx('b')
	_, flags, err = drv.Recv()
	if err != nil {
		return err
	}
	if !flags.OK() {
		return fmt.Errorf("flags leaked into the following frame: %s", flags)
	}
	return nil
}

func selftestSoftwareFlow() error {
	periph, peer := sim.NewLoopback()
	drv, err := uart.Open(periph, uart.WithFlowControl(uart.FlowControlSoftware))
	if err != nil {
		return err
	}
	defer drv.Close()

	peer.WriteData(0x13) // XOFF
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := drv.SendContext(ctx, 'x'); !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("send while paused: err = %v, want deadline exceeded", err)
	}

	peer.WriteData(0x11) // XON
	if _, err := drv.Send('x'); err != nil {
		return fmt.Errorf("send after resume: %v", err)
	}
	if !peer.RxPending() || peer.ReadData() != 'x' {
		return errors.New("resumed byte did not reach the peer")
	}
	return nil
}

func selftestHardwareFlow() error {
	periph, peer := sim.NewLoopback()
	rts, _ := sim.NewWire()
	peerRTS, cts := sim.NewWire()

	drv, err := uart.Open(periph,
		uart.WithFlowControl(uart.FlowControlHardware),
		uart.WithHandshakePins(rts, cts),
	)
	if err != nil {
		return err
	}
	defer drv.Close()

	peerRTS.Set(false)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := drv.SendContext(ctx, 'h'); !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("send with CTS low: err = %v, want deadline exceeded", err)
	}

	peerRTS.Set(true)
	if _, err := drv.Send('h'); err != nil {
		return fmt.Errorf("send with CTS high: %v", err)
	}
	if !peer.RxPending() {
		return errors.New("byte did not reach the peer after CTS went high")
	}
	return nil
}

func selftestStatusClear() error {
	periph := sim.New()
	drv, err := uart.Open(periph)
	if err != nil {
		return err
	}
	defer drv.Close()

	periph.InjectParityError()
	periph.InjectRx('p')
	if flags := drv.Status(); flags&uart.FlagParityError == 0 {
		return fmt.Errorf("status did not report the pending parity error: %s", flags)
	}
	if err := drv.Clear(); err != nil {
		return err
	}
	if flags := drv.Status(); !flags.OK() {
		return fmt.Errorf("flags survived clear: %s", flags)
	}
	if periph.RxPending() {
		return errors.New("pending frame survived clear")
	}
	return nil
}

func selftestStream() error {
	periph := sim.New()
	drv, err := uart.Open(periph, uart.WithStdMode(uart.StdModeReadWrite))
	if err != nil {
		return err
	}
	defer drv.Close()

	if _, err := drv.Printf("v=%d\r\n", 42); err != nil {
		return err
	}
	if got, want := string(periph.TxLog()), "v=42\r\n"; got != want {
		return fmt.Errorf("transmit log %q, want %q", got, want)
	}
	return nil
}

// openSelftestPair opens both ends of a simulated link with defaults.
func openSelftestPair() (*uart.Driver, *uart.Driver, error) {
	p1, p2 := sim.NewLoopback()
	local, err := uart.Open(p1)
	if err != nil {
		return nil, nil, err
	}
	remote, err := uart.Open(p2)
	if err != nil {
		local.Close()
		return nil, nil, err
	}
	return local, remote, nil
}
