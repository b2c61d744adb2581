// Package physx is a rigid-body engine whose step runs as a sequence of
// device kernels, each wrapped in a named profile zone.
//
// Bodies are added to a [Scene] before [System.InitGPU] uploads them into
// device-resident buffers; after that the scene is locked until [Scene.Clear].
//
// # Step Pipeline
//
//	Sim.updateArticulationDrives   joint PD drives (update)
//	Sim.integrateVelocities        gravity (update)
//	Sim.broadPhase                 sort-and-sweep candidate pairs
//	Sim.narrowPhase                contact generation
//	Solver.constraintPartition     contact coloring
//	Solver.solveConstraints        projected Gauss-Seidel
//	Sim.integratePositions         position update (update)
//	Sim.fetchResults               device to host copy
//
// The [StageProfiler] folds zone durations into the broadphase,
// narrowphase, coloring, solver, update and other stages.
//
// # Example
//
//	dev, _ := compute.Open("emu")
//	sys := physx.NewSystem(dev, physx.DefaultOptions())
//	scene := physx.NewScene(sys)
//	scene.AddGround(0)
//	scene.AddDynamicSphere("ball", 0.02, physx.Pose{P: physx.Vec3{0, 0, 1}})
//	_ = sys.InitGPU()
//	_ = sys.Step()
package physx
