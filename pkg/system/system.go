package system

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/registry"
	"github.com/cuemby/hutch/pkg/subsystem"
)

// System bundles one registry scope with a running notification broker.
type System struct {
	Registry *registry.Registry
	Broker   *events.Broker
}

// New bootstraps a registry scope. A zero maxSubsystems falls back to
// the registry default (16).
func New(maxSubsystems uint32) *System {
	s := &System{
		Registry: registry.New(maxSubsystems),
		Broker:   events.NewBroker(),
	}
	s.Broker.Start()
	return s
}

// NewSubsystem constructs a subsystem in this scope with the broker
// attached. The worker is not started.
func (s *System) NewSubsystem(name string, parents ...*subsystem.Subsystem) (*subsystem.Subsystem, error) {
	sub, err := subsystem.New(name, s.Registry, parents...)
	if err != nil {
		return nil, err
	}
	return sub.WithBroker(s.Broker), nil
}

// Apply builds the subsystems declared in cfg, parents before children,
// spawns their workers, and starts the ones marked autostart. It returns
// the constructed subsystems by name.
func (s *System) Apply(cfg *config.Config) (map[string]*subsystem.Subsystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	built := make(map[string]*subsystem.Subsystem, len(cfg.Subsystems))
	for len(built) < len(cfg.Subsystems) {
		progress := false
		for _, sc := range cfg.Subsystems {
			if _, done := built[sc.Name]; done {
				continue
			}
			parents := make([]*subsystem.Subsystem, 0, len(sc.Parents))
			ready := true
			for _, pname := range sc.Parents {
				p, ok := built[pname]
				if !ok {
					ready = false
					break
				}
				parents = append(parents, p)
			}
			if !ready {
				continue
			}

			sub, err := s.NewSubsystem(sc.Name, parents...)
			if err != nil {
				return nil, fmt.Errorf("building %q: %w", sc.Name, err)
			}
			sub.Spawn()
			built[sc.Name] = sub
			progress = true
		}
		if !progress {
			// Validate rejects cycles, so this is unreachable; guard
			// against an infinite loop anyway.
			return nil, config.ErrCycle
		}
	}

	for _, sc := range cfg.Subsystems {
		if sc.AutoStart {
			built[sc.Name].Start()
		}
	}
	return built, nil
}

// Shutdown destroys every registered subsystem and waits for the
// registry to drain, then stops the broker.
func (s *System) Shutdown(ctx context.Context) error {
	for _, info := range s.Registry.Entries() {
		if e, err := s.Registry.Get(info.Tag); err == nil {
			e.Handle.Destroy()
		}
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.Registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shutdown incomplete, %d subsystems left: %w", s.Registry.Len(), ctx.Err())
		case <-ticker.C:
		}
	}

	s.Broker.Stop()
	return nil
}
