//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include -I/usr/local/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L/usr/local/cuda/lib64 -lcudart
#include <stdio.h>
#include <stdlib.h>
#include <cuda_runtime_api.h>

static int gb_device_count() {
	int n = 0;
	if (cudaGetDeviceCount(&n) != cudaSuccess) {
		return 0;
	}
	return n;
}

static int gb_device_name(int ordinal, char* out, int len) {
	struct cudaDeviceProp prop;
	int rc = cudaGetDeviceProperties(&prop, ordinal);
	if (rc != cudaSuccess) {
		return rc;
	}
	snprintf(out, len, "%s", prop.name);
	return 0;
}

static int gb_primary_context(int ordinal) {
	int rc = cudaSetDevice(ordinal);
	if (rc != cudaSuccess) {
		return rc;
	}
	return cudaFree(0);
}

static int gb_alloc_probe(int ordinal, size_t size) {
	void* ptr = NULL;
	int rc = cudaSetDevice(ordinal);
	if (rc != cudaSuccess) {
		return rc;
	}
	rc = cudaMalloc(&ptr, size);
	if (rc != cudaSuccess) {
		return rc;
	}
	if (ptr != NULL) {
		cudaFree(ptr);
	}
	return 0;
}

static const char* gb_error_string(int rc) {
	return cudaGetErrorString((cudaError_t)rc);
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

const probeBytes = 64 * 1024 * 1024

// CUDADevice owns the primary context of one CUDA device. Kernels that
// have no CUDA implementation run on the host pool.
type CUDADevice struct {
	ordinal    int
	deviceName string
	workers    int
}

func newCUDADevice(ordinal int) (Device, error) {
	count := int(C.gb_device_count())
	if count == 0 || ordinal >= count {
		return nil, fmt.Errorf("%w: device %d (found %d)", ErrCUDAUnavailable, ordinal, count)
	}

	buf := (*C.char)(C.malloc(256))
	defer C.free(unsafe.Pointer(buf))
	name := fmt.Sprintf("device %d", ordinal)
	if C.gb_device_name(C.int(ordinal), buf, 256) == 0 {
		name = C.GoString(buf)
	}

	return &CUDADevice{
		ordinal:    ordinal,
		deviceName: name,
		workers:    runtime.NumCPU(),
	}, nil
}

func (c *CUDADevice) Name() string { return fmt.Sprintf("cuda:%d (%s)", c.ordinal, c.deviceName) }
func (c *CUDADevice) Kind() Kind   { return KindCUDA }
func (c *CUDADevice) GPU() bool    { return true }
func (c *CUDADevice) Release()     {}

// Init establishes the primary context before anything else touches the device.
func (c *CUDADevice) Init() error {
	if rc := int(C.gb_primary_context(C.int(c.ordinal))); rc != 0 {
		return fmt.Errorf("cuda primary context on device %d: %s", c.ordinal, errorString(rc))
	}
	return nil
}

func (c *CUDADevice) Dispatch(n, grain int, kernel Kernel) error {
	return launch(n, grain, c.workers, kernel)
}

// CheckCUDA reports whether a 64MB allocation on device 0 succeeds.
func CheckCUDA() (bool, string) {
	if int(C.gb_device_count()) == 0 {
		return false, "no cuda devices found"
	}
	if rc := int(C.gb_alloc_probe(0, C.size_t(probeBytes))); rc != 0 {
		return false, "cudaMalloc(64MB) failed: " + errorString(rc)
	}
	return true, "cudaMalloc(64MB) OK"
}

func errorString(rc int) string {
	return C.GoString(C.gb_error_string(C.int(rc)))
}
