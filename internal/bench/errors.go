package bench

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is the root of every error raised before stepping.
	ErrConfiguration = errors.New("bench: configuration error")

	// ErrUnknownTask indicates a task name with no registered builder.
	ErrUnknownTask = fmt.Errorf("%w: unknown task", ErrConfiguration)

	// ErrNotGPU indicates a physics system that does not execute on a GPU.
	ErrNotGPU = fmt.Errorf("%w: physics system is not GPU-backed", ErrConfiguration)

	// ErrMissingInput indicates a task that requires an input that was not given.
	ErrMissingInput = fmt.Errorf("%w: missing required input", ErrConfiguration)

	// ErrNoTasks indicates an empty task selection.
	ErrNoTasks = fmt.Errorf("%w: no tasks selected", ErrConfiguration)

	// ErrInputNotFound indicates an external input file that does not exist.
	ErrInputNotFound = errors.New("bench: input not found")
)

// UnknownTaskError names the requested task and every registered one.
type UnknownTaskError struct {
	Name      string
	Available []string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task '%s'. Available tasks: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownTaskError) Unwrap() error {
	return ErrUnknownTask
}
