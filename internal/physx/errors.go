package physx

import "errors"

var (
	// ErrSceneLocked indicates a mutation after the scene was uploaded to the device.
	ErrSceneLocked = errors.New("physx: scene is locked after gpu init")

	// ErrNotInitialized indicates a step before InitGPU.
	ErrNotInitialized = errors.New("physx: system not initialized (call InitGPU first)")

	// ErrNoScene indicates a system with no scene attached.
	ErrNoScene = errors.New("physx: no scene attached to system")

	// ErrInvalidShape indicates a non-positive shape dimension.
	ErrInvalidShape = errors.New("physx: invalid shape dimensions")

	// ErrInvalidURDF indicates a structurally invalid robot description.
	ErrInvalidURDF = errors.New("physx: invalid urdf")
)
