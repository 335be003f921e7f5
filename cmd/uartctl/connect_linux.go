/*
Copyright © 2025 0x007E
*/
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/hostport"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Interactive console on a host serial port",
	Long: `Open the interactive console on a host serial port instead of the
simulated link. The configured frame format and baud rate are applied to
the port; hardware flow control uses the port's RTS and CTS modem lines.

Example usage:
  uartctl connect /dev/ttyUSB0
  uartctl connect /dev/ttyACM0 --baud 115200 --flow hardware`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, err := hostport.Open(args[0], viper.GetInt("clock"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", args[0], err)
			os.Exit(1)
		}
		defer port.Close()

		opts, err := driverOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		flow, _ := parseFlow(viper.GetString("flow"))
		if flow == uart.FlowControlHardware {
			rts, cts := port.Pins()
			opts = append(opts, uart.WithHandshakePins(rts, cts))
		}

		drv, err := uart.Open(port, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer drv.Close()

		if err := runConsole(drv, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error running console: %v\n", err)
			os.Exit(1)
		}
	},
}

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available host serial ports",
	Long: `List the serial ports available on this machine.

Example usage:
  uartctl ports`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := hostport.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return
		}

		headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
		fmt.Println(headerStyle.Render(fmt.Sprintf("Found %d serial port(s):", len(ports))))
		for _, p := range ports {
			fmt.Printf("  %s\n", p)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(portsCmd)
}
