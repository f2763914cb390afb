/*
Package system bootstraps a registry scope: one registry, one
notification broker, and helpers for building whole topologies.

	sys := system.New(16)
	osys, _ := sys.NewSubsystem("os")
	cam, _ := sys.NewSubsystem("camera", osys)
	osys.Spawn()
	cam.Spawn()
	osys.Start()
	...
	_ = sys.Shutdown(ctx)

Apply consumes a config.Config topology: subsystems are constructed
parents-first, workers spawned, and autostart roots started. Shutdown is
the registry-wide teardown: every live subsystem gets a destroy trigger,
and the call blocks until all workers have deregistered.
*/
package system
