// Package compute provides the devices physics kernels execute on.
//
// A device identifier selects one of:
//
//   - cuda, cuda:N: CUDA device N (requires the cuda build tag)
//   - emu, emu:W: emulated GPU, kernels launched data-parallel over W workers
//   - cpu: host reference device, not GPU-backed
//
// # Kernel Dispatch
//
// Kernels are launched over an index range and split into chunks:
//
//	dev, _ := compute.Open("emu")
//	err := dev.Dispatch(n, 64, func(start, end int) error {
//		for i := start; i < end; i++ {
//			out[i] = in[i] * 2
//		}
//		return nil
//	})
//
// Build with CUDA support:
//
//	go build -tags cuda ./...
//
// Kernels that have no CUDA implementation run on the host pool, the same
// fallback the CPU path uses.
package compute
