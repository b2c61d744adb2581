package compute

// HostDevice runs kernels serially on the calling goroutine. It is the
// reference device and is not GPU-backed.
type HostDevice struct{}

func NewHostDevice() *HostDevice { return &HostDevice{} }

func (h *HostDevice) Name() string { return "cpu" }
func (h *HostDevice) Kind() Kind   { return KindCPU }
func (h *HostDevice) GPU() bool    { return false }
func (h *HostDevice) Init() error  { return nil }
func (h *HostDevice) Release()     {}

func (h *HostDevice) Dispatch(n, grain int, kernel Kernel) error {
	if n <= 0 {
		return nil
	}
	return kernel(0, n)
}
