// Package parallel contains the bounded parallel ForEach used by the numeric kernels.
package parallel

import "runtime"
import "sync"
import "sync/atomic"

var threads atomic.Int64

// SetThreads sets the default number of goroutines used by kernels calling ForEach
// with Threads(). Values below 1 reset it to the number of CPUs.
func SetThreads(n int) {
	if n < 1 {
		n = 0
	}
	threads.Store(int64(n))
}

// Threads reports the default kernel parallelism. Can't return 0.
func Threads() int {
	if n := threads.Load(); n > 0 {
		return int(n)
	}
	return runtime.NumCPU()
}

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one integer, from 0 to length.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1 // Default to 1 if limit is zero or negative
	}
	if length <= 0 {
		return // No iterations to perform
	}
	if limit == 1 || length == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	sem := make(chan struct{}, limit) // Semaphore with buffer size 'limit'
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{} // Acquire semaphore
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore after function exits

			body(i)
		}(i)
	}

	wg.Wait() // Wait for all goroutines to finish
}
