//go:build !wasm

package serial

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
)

// PortDescriptor describes a serial device present on the host
type PortDescriptor struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

func (d PortDescriptor) String() string {
	if !d.IsUSB {
		return d.Name
	}
	desc := fmt.Sprintf("%s [USB %s:%s", d.Name, d.VID, d.PID)
	if d.Product != "" {
		desc += " " + d.Product
	}
	if d.SerialNumber != "" {
		desc += " sn=" + d.SerialNumber
	}
	return desc + "]"
}

// ListPorts returns the serial devices available on this host, sorted by name
func ListPorts() ([]PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortDescriptor, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortDescriptor{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}

	sort.Slice(ports, func(i, j int) bool {
		return ports[i].Name < ports[j].Name
	})
	return ports, nil
}
