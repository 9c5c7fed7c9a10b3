// Package device detects the compute device the kernels run on
package device

import "fmt"
import "runtime"
import "strings"

import "github.com/klauspost/cpuid/v2"

// Device describes the host the training runs on.
type Device struct {
	Name     string   // CPU brand
	Threads  int      // kernel goroutines
	Features []string // vector extensions the CPU supports
	GPU      string   // first CUDA device, empty when none was probed
	GPUMem   int64    // bytes of GPU memory
}

// Select probes the CPU and, when built with the cuda tag, the first CUDA
// device. threads <= 0 selects the number of logical cores.
func Select(threads int) Device {
	d := Device{
		Name:    strings.TrimSpace(cpuid.CPU.BrandName),
		Threads: threads,
	}
	if d.Name == "" {
		d.Name = runtime.GOARCH
	}
	if d.Threads <= 0 {
		d.Threads = cpuid.CPU.LogicalCores
	}
	if d.Threads <= 0 {
		d.Threads = runtime.NumCPU()
	}
	for _, f := range []cpuid.FeatureID{cpuid.SSE4, cpuid.AVX, cpuid.AVX2, cpuid.FMA3, cpuid.AVX512F, cpuid.ASIMD} {
		if cpuid.CPU.Supports(f) {
			d.Features = append(d.Features, f.String())
		}
	}
	d.GPU, d.GPUMem = probeCUDA()
	return d
}

// String formats the device for the log.
func (d Device) String() string {
	s := fmt.Sprintf("%s, %d threads", d.Name, d.Threads)
	if len(d.Features) > 0 {
		s += " [" + strings.Join(d.Features, " ") + "]"
	}
	if d.GPU != "" {
		s += fmt.Sprintf(", cuda %s (%d MiB)", d.GPU, d.GPUMem>>20)
	}
	return s
}
