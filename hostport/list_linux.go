//go:build linux

package hostport

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

var portPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
}

// List returns the serial devices present on the system, sorted.
func List() ([]string, error) {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil, err
	}
	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		for _, pattern := range portPatterns {
			if pattern.MatchString(name) {
				ports = append(ports, filepath.Join("/dev", name))
				break
			}
		}
	}
	sort.Strings(ports)
	return ports, nil
}
