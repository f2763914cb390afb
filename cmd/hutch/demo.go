package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/subsystem"
	"github.com/cuemby/hutch/pkg/system"
	"github.com/cuemby/hutch/pkg/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the OS/CAMERA/METADATA demo tree",
	Long: `Build a small dependency tree and walk it through a scripted
lifecycle: start, error, restart, destroy.

	OS
	├── CAMERA
	└── METADATA

CAMERA and METADATA follow OS through every transition via the default
parent cascade.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys := system.New(0)

		// Print every committed transition as it happens.
		sub := sys.Broker.Subscribe()
		defer sys.Broker.Unsubscribe(sub)
		go func() {
			for n := range sub {
				if n.Type == events.TypeTransition {
					fmt.Printf("  %-10s %s -> %s\n", n.Name, n.From, n.To)
				}
			}
		}()

		osys, err := sys.NewSubsystem("OS")
		if err != nil {
			return err
		}
		osys.WithHooks(subsystem.Hooks{
			OnStart: func(ctx context.Context) error {
				time.Sleep(200 * time.Millisecond) // simulate bring-up work
				return nil
			},
		})

		cam, err := sys.NewSubsystem("CAMERA", osys)
		if err != nil {
			return err
		}
		meta, err := sys.NewSubsystem("METADATA", osys)
		if err != nil {
			return err
		}

		for _, s := range []*subsystem.Subsystem{osys, cam, meta} {
			s.Spawn()
		}

		fmt.Println(">> starting the OS subsystem")
		osys.Start()
		cam.Start()
		meta.Start()
		waitAll(types.StateRunning, osys, cam, meta)
		fmt.Println(">> all subsystems running")
		sys.Registry.Snapshot(os.Stdout)

		fmt.Println(">> triggering error on the OS subsystem")
		osys.Error()
		waitAll(types.StateError, osys, cam, meta)

		fmt.Println(">> restarting the OS subsystem")
		osys.Start()
		waitAll(types.StateRunning, osys, cam, meta)

		fmt.Println(">> destroying the OS subsystem")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sys.Shutdown(ctx); err != nil {
			return err
		}
		fmt.Println(">> all subsystems destroyed")
		return nil
	},
}

// waitAll polls until every subsystem reports the wanted state.
func waitAll(want types.State, subs ...*subsystem.Subsystem) {
	for _, s := range subs {
		for s.State() != want {
			time.Sleep(10 * time.Millisecond)
		}
	}
}
