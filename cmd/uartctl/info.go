/*
Copyright © 2025 0x007E
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/sim"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display the resolved driver configuration",
	Long: `Display the driver configuration resolved from flags, config file
and environment, together with the derived baud generator settings.

Examples:
  uartctl info
  uartctl info --clock 16000000 --baud 115200
  UARTCTL_PARITY=even uartctl info`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := driverOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		drv, err := uart.Open(sim.New(), opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer drv.Close()

		cfg := drv.Config()
		div, _ := uart.Divisor(cfg.ClockHz, cfg.BaudRate)
		effective, _ := uart.EffectiveBaud(cfg.ClockHz, cfg.BaudRate)

		fmt.Println("Driver Configuration:")
		fmt.Println()
		fmt.Printf("  Clock:          %d Hz\n", cfg.ClockHz)
		fmt.Printf("  Baud rate:      %d\n", cfg.BaudRate)
		fmt.Printf("  Frame format:   %d%s%d\n", cfg.DataBits, parityLetter(cfg.Parity), cfg.StopBits)
		fmt.Printf("  Flow control:   %s\n", cfg.FlowControl)
		if cfg.FlowControl == uart.FlowControlSoftware {
			fmt.Printf("  XON / XOFF:     0x%02X / 0x%02X\n", cfg.XON, cfg.XOFF)
		}
		fmt.Printf("  Echo:           %t\n", cfg.Echo)
		fmt.Printf("  Receive buffer: %d frame(s)\n", cfg.ReceiveBuffer)

		fmt.Println("\nBaud Generator:")
		fmt.Printf("  Divisor:        %d\n", div)
		fmt.Printf("  Effective rate: %d baud\n", effective)
		if effective != cfg.BaudRate {
			fmt.Printf("  Deviation:      %+.3f%%\n", 100*float64(effective-cfg.BaudRate)/float64(cfg.BaudRate))
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func parityLetter(p uart.Parity) string {
	switch p {
	case uart.ParityEven:
		return "E"
	case uart.ParityOdd:
		return "O"
	default:
		return "N"
	}
}
