package probe

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/subsystem"
	"github.com/cuemby/hutch/pkg/types"
)

// Monitor drives a Checker against a subsystem: it probes while the
// subsystem is RUNNING (or in ERROR, so recoveries are noticed), routes
// the subsystem into ERROR after the configured number of consecutive
// failures, and starts it again once the probe recovers.
//
// Wire it up through the hook surface:
//
//	s, _ := subsystem.New("api", reg)
//	mon := probe.NewMonitor(probe.NewHTTPChecker(url)).WithInterval(time.Second)
//	s.WithHooks(mon.Hooks(s))
//	s.Spawn()
type Monitor struct {
	checker Checker
	config  Config

	mu      sync.Mutex
	status  *Status
	stopCh  chan struct{}
	running bool
}

// NewMonitor creates a monitor with default probe configuration.
func NewMonitor(c Checker) *Monitor {
	return &Monitor{
		checker: c,
		config:  DefaultConfig(),
		status:  NewStatus(),
	}
}

// WithInterval sets the time between probes
func (m *Monitor) WithInterval(d time.Duration) *Monitor {
	m.config.Interval = d
	return m
}

// WithTimeout sets the per-probe timeout
func (m *Monitor) WithTimeout(d time.Duration) *Monitor {
	m.config.Timeout = d
	return m
}

// WithRetries sets the consecutive-failure threshold
func (m *Monitor) WithRetries(n int) *Monitor {
	m.config.Retries = n
	return m
}

// WithSuccessThreshold sets the consecutive-success recovery threshold
func (m *Monitor) WithSuccessThreshold(n int) *Monitor {
	m.config.SuccessThreshold = n
	return m
}

// Status returns a copy of the rolling probe status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.status
}

// Hooks binds the monitor to target and returns the hook set to install
// on it. OnError deliberately keeps the probe loop alive so a recovered
// target is started again.
func (m *Monitor) Hooks(target *subsystem.Subsystem) subsystem.Hooks {
	return subsystem.Hooks{
		OnStart: func(ctx context.Context) error {
			m.start(ctx, target)
			return nil
		},
		OnStop: func(context.Context) error {
			m.stop()
			return nil
		},
		OnDestroy: func(context.Context) error {
			m.stop()
			return nil
		},
	}
}

func (m *Monitor) start(ctx context.Context, target *subsystem.Subsystem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		// restart after a recovery: the loop never stopped
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	go m.loop(ctx, target, m.stopCh)
}

func (m *Monitor) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
}

func (m *Monitor) loop(ctx context.Context, target *subsystem.Subsystem, stopCh chan struct{}) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.runCheck(ctx, target)
	for {
		select {
		case <-ticker.C:
			m.runCheck(ctx, target)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) runCheck(ctx context.Context, target *subsystem.Subsystem) {
	checkCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	result := m.checker.Check(checkCtx)

	m.mu.Lock()
	wasHealthy := m.status.Healthy
	m.status.Update(result, m.config)
	nowHealthy := m.status.Healthy
	m.mu.Unlock()

	logger := log.WithComponent("probe")
	switch {
	case wasHealthy && !nowHealthy:
		logger.Warn().Str("subsystem", target.Name()).Str("message", result.Message).Msg("probe unhealthy, routing to error")
		if target.State() == types.StateRunning {
			target.Error()
		}
	case !wasHealthy && nowHealthy:
		logger.Info().Str("subsystem", target.Name()).Msg("probe recovered, restarting")
		if target.State() == types.StateError {
			target.Start()
		}
	}
}
