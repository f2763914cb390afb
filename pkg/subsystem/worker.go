package subsystem

import "context"

// Spawn starts the subsystem's worker goroutine: a loop that consumes
// one bus message at a time until the terminator is observed. Calling
// Spawn more than once is a no-op.
func (s *Subsystem) Spawn() {
	s.spawnOnce.Do(func() {
		s.spawned.Store(true)
		go func() {
			defer close(s.done)
			for s.HandleBusMessage() {
			}
		}()
	})
}

// Join blocks until the worker has exited, or ctx is done. A subsystem
// driven by a bespoke loop (without Spawn) is joined by waiting for
// HandleBusMessage to return false instead.
func (s *Subsystem) Join(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done exposes the worker-exit channel for select-based callers.
func (s *Subsystem) Done() <-chan struct{} {
	return s.done
}
