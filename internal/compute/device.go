package compute

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

var (
	// ErrUnknownDevice indicates a device identifier that no backend accepts.
	ErrUnknownDevice = errors.New("compute: unknown device")

	// ErrCUDAUnavailable indicates the binary was built without CUDA or no device is present.
	ErrCUDAUnavailable = errors.New("compute: cuda not available")
)

type Kind int

const (
	KindCPU Kind = iota
	KindEmulated
	KindCUDA
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindEmulated:
		return "emu"
	case KindCUDA:
		return "cuda"
	default:
		return "unknown"
	}
}

// Kernel processes the half-open index range [start, end).
type Kernel func(start, end int) error

type Device interface {
	Name() string
	Kind() Kind
	GPU() bool
	Init() error
	Dispatch(n, grain int, kernel Kernel) error
	Release()
}

// Open resolves a device identifier such as "cuda", "cuda:1", "emu:8" or "cpu".
func Open(spec string) (Device, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" {
		spec = "cuda"
	}

	kind, arg, hasArg := strings.Cut(spec, ":")
	n := 0
	if hasArg {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, spec)
		}
		n = v
	}

	switch kind {
	case "cuda":
		return newCUDADevice(n)
	case "emu":
		if n == 0 {
			n = runtime.NumCPU()
		}
		return NewEmulatedDevice(n), nil
	case "cpu":
		if hasArg {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, spec)
		}
		return NewHostDevice(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, spec)
	}
}
