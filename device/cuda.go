//go:build cuda

package device

import "gorgonia.org/cu"

func probeCUDA() (string, int64) {
	n, err := cu.NumDevices()
	if err != nil || n == 0 {
		return "", 0
	}
	name, err := cu.Device(0).Name()
	if err != nil {
		return "", 0
	}
	memory, err := cu.Device(0).TotalMem()
	if err != nil {
		memory = 0
	}
	return name, memory
}
