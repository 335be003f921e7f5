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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/internal/tui/components"
	"github.com/0x007E/hal-avr-mega-uart/internal/tui/models"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console over a simulated loopback link",
	Long: `Open an interactive console on a simulated loopback link.

The local end is driven from the console; the remote end echoes every
byte back, so typed data reappears in the receive log. Flow control can
be exercised live: 'p' forces a transmit pause on the link, 'r' resumes
it.

Key bindings:
  i        insert mode (type data, enter sends)
  esc      leave insert mode
  p / r    pause / resume the link (active flow control mode)
  c        clear the frame log
  h        toggle hex display
  ?        toggle help
  q        quit

Example usage:
  uartctl console
  uartctl console --flow software --parity even`,
	Run: func(cmd *cobra.Command, args []string) {
		local, remote, err := openLoopback()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer local.Close()
		defer remote.Close()

		if err := runConsole(local, remote); err != nil {
			fmt.Fprintf(os.Stderr, "Error running console: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// runConsole drives the console model on the local driver, forwarding every
// received byte into the model. If remote is non-nil it is pumped as an echo
// responder, so the loopback console shows the full round trip; connect
// passes nil because the far end is a real device.
func runConsole(local, remote *uart.Driver) error {
	cfg := local.Config()
	m := models.NewConsole(local, components.ConnectionInfo{
		ClockHz:     cfg.ClockHz,
		BaudRate:    cfg.BaudRate,
		DataBits:    cfg.DataBits,
		StopBits:    cfg.StopBits,
		Parity:      cfg.Parity,
		FlowControl: cfg.FlowControl,
		Handshake:   uart.HandshakeReady,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if remote != nil {
		// Remote echo loop. Each byte the local end transmits comes
		// straight back.
		go func() {
			for {
				b, _, err := remote.RecvContext(ctx)
				if err != nil {
					return
				}
				if _, err := remote.SendContext(ctx, b); err != nil {
					return
				}
			}
		}()
	}

	// Local receive loop feeding the model.
	go func() {
		for {
			b, flags, err := local.RecvContext(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, uart.ErrClosed) {
					return
				}
				p.Send(models.LinkErrMsg{Err: err})
				return
			}
			p.Send(models.RxMsg{Byte: b, Flags: flags, When: time.Now()})
		}
	}()

	_, err := p.Run()
	return err
}
