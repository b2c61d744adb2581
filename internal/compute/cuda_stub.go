//go:build !cuda

package compute

func newCUDADevice(ordinal int) (Device, error) {
	return nil, ErrCUDAUnavailable
}

// CheckCUDA reports whether a 64MB allocation on device 0 succeeds.
func CheckCUDA() (bool, string) {
	return false, "cuda support not compiled in (build with -tags cuda)"
}
