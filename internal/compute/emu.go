package compute

import "fmt"

// EmulatedDevice is a GPU-class device whose kernel launches are executed
// data-parallel across a fixed number of workers. Launch boundaries are
// synchronous, matching a stream that is synchronized after every kernel.
type EmulatedDevice struct {
	workers     int
	initialized bool
}

func NewEmulatedDevice(workers int) *EmulatedDevice {
	if workers < 1 {
		workers = 1
	}
	return &EmulatedDevice{workers: workers}
}

func (e *EmulatedDevice) Name() string { return fmt.Sprintf("emu (%d workers)", e.workers) }
func (e *EmulatedDevice) Kind() Kind   { return KindEmulated }
func (e *EmulatedDevice) GPU() bool    { return true }

func (e *EmulatedDevice) Init() error {
	e.initialized = true
	return nil
}

func (e *EmulatedDevice) Release() { e.initialized = false }

func (e *EmulatedDevice) Dispatch(n, grain int, kernel Kernel) error {
	return launch(n, grain, e.workers, kernel)
}
