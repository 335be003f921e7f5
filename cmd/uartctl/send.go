/*
Copyright © 2025 0x007E
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data]",
	Short: "Send data across a simulated loopback link",
	Long: `Send data across a simulated loopback link and report how the
remote end received each frame.

Data can be provided as a command line argument or piped via stdin:
  uartctl send "Hello World"
  echo "test data" | uartctl send

Each byte is transmitted through the local driver's flow control and
received by the remote driver; the per-frame error flags reported by the
remote end are printed alongside the byte.

Example usage:
  uartctl send "AT+GMR" --newline
  uartctl send 48656c6c6f --hex
  uartctl send "Hello" --flow software --parity even`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		if len(args) == 1 {
			data = args[0]
		} else {
			stdinData, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
				os.Exit(1)
			}
			data = strings.TrimRight(string(stdinData), "\r\n")
		}

		hexMode, _ := cmd.Flags().GetBool("hex")
		addNewline, _ := cmd.Flags().GetBool("newline")

		payload := []byte(data)
		if hexMode {
			decoded, err := parseHexString(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
			payload = decoded
		} else if addNewline {
			payload = append(payload, '\n')
		}

		local, remote, err := openLoopback()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer local.Close()
		defer remote.Close()

		txStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
		flagStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

		for _, b := range payload {
			if _, err := local.Send(b); err != nil {
				fmt.Fprintf(os.Stderr, "Error sending 0x%02X: %v\n", b, err)
				os.Exit(1)
			}
			rb, flags, err := remote.Recv()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error receiving: %v\n", err)
				os.Exit(1)
			}

			status := okStyle.Render(flags.String())
			if !flags.OK() {
				status = flagStyle.Render(flags.String())
			}
			fmt.Printf("%s  %s\n", txStyle.Render(fmt.Sprintf("0x%02X %s", rb, printableByte(rb))), status)
		}

		fmt.Println(okStyle.Render(fmt.Sprintf("✓ Sent %d bytes", len(payload))))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
}

func parseHexString(hexStr string) ([]byte, error) {
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}

	result := make([]byte, 0, len(hexStr)/2)
	for i := 0; i < len(hexStr); i += 2 {
		v, err := strconv.ParseUint(hexStr[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q: %v", hexStr[i:i+2], err)
		}
		result = append(result, byte(v))
	}
	return result, nil
}

func printableByte(b byte) string {
	if b >= 0x20 && b < 0x7F {
		return fmt.Sprintf("%q", b)
	}
	return "·"
}
