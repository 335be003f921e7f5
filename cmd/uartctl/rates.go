/*
Copyright © 2025 0x007E
*/
package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	uart "github.com/0x007E/hal-avr-mega-uart"
)

const (
	columnKeyBaud      = "baud"
	columnKeyDivisor   = "divisor"
	columnKeyEffective = "effective"
	columnKeyDeviation = "deviation"
	columnKeyStatus    = "status"
)

// ratesCmd represents the rates command
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show achievable standard baud rates for the configured clock",
	Long: `Show which standard baud rates the fractional baud generator can
achieve at the configured peripheral clock, together with the divisor,
the effective rate and the deviation from the nominal rate.

Example usage:
  uartctl rates
  uartctl rates --clock 16000000
  uartctl rates -c 1843200`,
	Run: func(cmd *cobra.Command, args []string) {
		clock := viper.GetInt("clock")

		rows := make([]table.Row, 0, len(uart.StandardRates))
		for _, rate := range uart.StandardRates {
			div, err := uart.Divisor(clock, rate)
			if err != nil {
				rows = append(rows, table.NewRow(table.RowData{
					columnKeyBaud:      fmt.Sprintf("%d", rate),
					columnKeyDivisor:   "-",
					columnKeyEffective: "-",
					columnKeyDeviation: "-",
					columnKeyStatus:    "out of range",
				}))
				continue
			}

			effective, _ := uart.EffectiveBaud(clock, rate)
			deviation := 100 * float64(effective-rate) / float64(rate)
			rows = append(rows, table.NewRow(table.RowData{
				columnKeyBaud:      fmt.Sprintf("%d", rate),
				columnKeyDivisor:   fmt.Sprintf("%d", div),
				columnKeyEffective: fmt.Sprintf("%d", effective),
				columnKeyDeviation: fmt.Sprintf("%+.3f%%", deviation),
				columnKeyStatus:    "ok",
			}))
		}

		t := table.New([]table.Column{
			table.NewColumn(columnKeyBaud, "Baud", 10),
			table.NewColumn(columnKeyDivisor, "Divisor", 10),
			table.NewColumn(columnKeyEffective, "Effective", 10),
			table.NewColumn(columnKeyDeviation, "Deviation", 11),
			table.NewColumn(columnKeyStatus, "Status", 14),
		}).
			WithRows(rows).
			WithBaseStyle(lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1))

		fmt.Printf("Baud rates at %d Hz peripheral clock:\n\n", clock)
		fmt.Println(t.View())
	},
}

func init() {
	rootCmd.AddCommand(ratesCmd)
}
