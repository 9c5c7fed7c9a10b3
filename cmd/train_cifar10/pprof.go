package main

import "fmt"
import "os"
import "runtime/pprof"

// startProfile collects a CPU profile into path until the returned function
// is called. The file can be used for profile guided optimization.
func startProfile(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("pgo: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("pgo: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
