/*
Copyright © 2025 0x007E
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/sim"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "uartctl",
	Short: "Exercise and inspect the polled UART driver",
	Long: `uartctl exercises the polled UART driver against a simulated
peripheral pair, and on Linux against a host serial port.

The frame format and link options are shared by all subcommands and can
be set on the command line, via a config file ($HOME/.uartctl.yaml) or
through UARTCTL_* environment variables.

Example usage:
  uartctl selftest
  uartctl send "Hello" --flow software
  uartctl rates --clock 16000000
  uartctl console --baud 115200`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.uartctl.yaml)")
	rootCmd.PersistentFlags().IntP("clock", "c", 12_000_000, "peripheral clock in Hz")
	rootCmd.PersistentFlags().IntP("baud", "b", 9600, "baud rate")
	rootCmd.PersistentFlags().Int("databits", 8, "data bits per frame (5-9)")
	rootCmd.PersistentFlags().Int("stopbits", 1, "stop bits per frame (1-2)")
	rootCmd.PersistentFlags().StringP("parity", "p", "none", "parity mode: none, even, odd")
	rootCmd.PersistentFlags().StringP("flow", "f", "none", "flow control: none, software, hardware")
	rootCmd.PersistentFlags().Bool("echo", false, "echo received bytes back to the sender")
	rootCmd.PersistentFlags().Int("rx-buffer", 1, "receive backlog in frames")

	for _, name := range []string{"clock", "baud", "databits", "stopbits", "parity", "flow", "echo", "rx-buffer"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			cobra.CheckErr(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".uartctl")
	}

	viper.SetEnvPrefix("UARTCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func parseParity(s string) (uart.Parity, error) {
	switch strings.ToLower(s) {
	case "none", "n":
		return uart.ParityNone, nil
	case "even", "e":
		return uart.ParityEven, nil
	case "odd", "o":
		return uart.ParityOdd, nil
	default:
		return 0, fmt.Errorf("unknown parity %q (want none, even or odd)", s)
	}
}

func parseFlow(s string) (uart.FlowControl, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return uart.FlowControlNone, nil
	case "software", "xonxoff":
		return uart.FlowControlSoftware, nil
	case "hardware", "rtscts":
		return uart.FlowControlHardware, nil
	default:
		return 0, fmt.Errorf("unknown flow control %q (want none, software or hardware)", s)
	}
}

// driverOptions translates the persistent flags into driver options, minus
// the handshake pins which depend on the backing peripheral.
func driverOptions() ([]uart.Option, error) {
	parity, err := parseParity(viper.GetString("parity"))
	if err != nil {
		return nil, err
	}
	flow, err := parseFlow(viper.GetString("flow"))
	if err != nil {
		return nil, err
	}

	return []uart.Option{
		uart.WithClock(viper.GetInt("clock")),
		uart.WithBaudRate(viper.GetInt("baud")),
		uart.WithDataBits(viper.GetInt("databits")),
		uart.WithStopBits(viper.GetInt("stopbits")),
		uart.WithParity(parity),
		uart.WithFlowControl(flow),
		uart.WithEcho(viper.GetBool("echo")),
		uart.WithReceiveBuffer(viper.GetInt("rx-buffer")),
	}, nil
}

// openLoopback opens two drivers on a cross-wired simulated peripheral pair,
// both configured from the persistent flags. In hardware flow mode each
// driver's RTS output is wired to the other's CTS input.
func openLoopback() (local, remote *uart.Driver, err error) {
	opts, err := driverOptions()
	if err != nil {
		return nil, nil, err
	}

	localPeriph, remotePeriph := sim.NewLoopback()

	localOpts := opts
	remoteOpts := opts
	if viper.GetString("flow") == "hardware" || viper.GetString("flow") == "rtscts" {
		localRTS, remoteCTS := sim.NewWire()
		remoteRTS, localCTS := sim.NewWire()
		localOpts = append(localOpts[:len(localOpts):len(localOpts)], uart.WithHandshakePins(localRTS, localCTS))
		remoteOpts = append(remoteOpts[:len(remoteOpts):len(remoteOpts)], uart.WithHandshakePins(remoteRTS, remoteCTS))
	}

	local, err = uart.Open(localPeriph, localOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local end: %w", err)
	}
	remote, err = uart.Open(remotePeriph, remoteOpts...)
	if err != nil {
		local.Close()
		return nil, nil, fmt.Errorf("opening remote end: %w", err)
	}
	return local, remote, nil
}
