package subsystem

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hutch/pkg/registry"
	"github.com/cuemby/hutch/pkg/types"
)

func TestHooks_LifecycleOrder(t *testing.T) {
	reg := registry.New(8)

	var calls []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			calls = append(calls, name) // worker goroutine only
			return nil
		}
	}

	s, err := New("s", reg)
	require.NoError(t, err)
	s.WithHooks(Hooks{
		OnStart:   record("start"),
		OnStop:    record("stop"),
		OnDestroy: record("destroy"),
	})
	s.Spawn()

	s.Start()
	waitState(t, s, types.StateRunning)
	s.Stop()
	waitState(t, s, types.StateStopped)
	s.Destroy()
	joinAll(t, s)

	assert.Equal(t, []string{"start", "stop", "destroy"}, calls)
}

func TestHooks_ErrorRoutesToErrorState(t *testing.T) {
	reg := registry.New(8)

	var onError atomic.Int32
	s, err := New("s", reg)
	require.NoError(t, err)
	s.WithHooks(Hooks{
		OnStart: func(context.Context) error {
			return errors.New("boom")
		},
		OnError: func(context.Context) error {
			onError.Add(1)
			return nil
		},
	})
	s.Spawn()

	s.Start()
	waitState(t, s, types.StateError)
	assert.Equal(t, int32(1), onError.Load())

	s.Destroy()
	joinAll(t, s)
}

func TestHooks_PanicContained(t *testing.T) {
	reg := registry.New(8)

	s, err := New("s", reg)
	require.NoError(t, err)
	s.WithHooks(Hooks{
		OnStart: func(context.Context) error {
			panic("hook exploded")
		},
	})
	s.Spawn()

	s.Start()
	waitState(t, s, types.StateError)

	s.Destroy()
	joinAll(t, s)
}

func TestHooks_FailingErrorHookDoesNotLoop(t *testing.T) {
	reg := registry.New(8)

	var attempts atomic.Int32
	s, err := New("s", reg)
	require.NoError(t, err)
	s.WithHooks(Hooks{
		OnError: func(context.Context) error {
			attempts.Add(1)
			return errors.New("still broken")
		},
	})
	s.Spawn()

	s.Error()
	time.Sleep(100 * time.Millisecond)

	// One attempt, no self-sustaining SELF/ERROR storm, state untouched.
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, types.StateInit, s.State())

	s.Destroy()
	joinAll(t, s)
}

func TestHooks_DestroyHookFailureStillDestroys(t *testing.T) {
	reg := registry.New(8)

	s, err := New("s", reg)
	require.NoError(t, err)
	s.WithHooks(Hooks{
		OnDestroy: func(context.Context) error {
			return errors.New("cleanup failed")
		},
	})
	s.Spawn()

	s.Destroy()
	waitState(t, s, types.StateDestroyed)
	joinAll(t, s)
}

func TestHooks_ContextCanceledOnDestroy(t *testing.T) {
	reg := registry.New(8)

	ctxSeen := make(chan context.Context, 1)
	s, err := New("s", reg)
	require.NoError(t, err)
	s.WithHooks(Hooks{
		OnStart: func(ctx context.Context) error {
			ctxSeen <- ctx
			return nil
		},
	})
	s.Spawn()

	s.Start()
	waitState(t, s, types.StateRunning)
	ctx := <-ctxSeen
	assert.NoError(t, ctx.Err(), "hook context live while running")

	s.Destroy()
	joinAll(t, s)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

// Every running parent hears CHILD events for each of
// the child's commits.
func TestHooks_OnChildNotified(t *testing.T) {
	reg := registry.New(8)

	p, err := New("p", reg)
	require.NoError(t, err)

	childEvents := make(chan types.Event, 16)
	p.WithHooks(Hooks{
		OnChild: func(ev types.Event) error {
			childEvents <- ev
			return nil
		},
	})

	c, err := New("c", reg, p)
	require.NoError(t, err)
	p.Spawn()
	c.Spawn()

	p.Start()
	waitState(t, p, types.StateRunning)
	c.Start()
	waitState(t, c, types.StateRunning)

	select {
	case ev := <-childEvents:
		assert.Equal(t, types.OriginChild, ev.Origin)
		assert.Equal(t, c.Tag(), ev.Src)
		assert.Equal(t, types.StateRunning, ev.State)
	case <-time.After(2 * time.Second):
		t.Fatal("parent never received CHILD event")
	}

	p.Destroy()
	waitState(t, c, types.StateDestroyed)
	joinAll(t, p, c)
}

// A custom OnParent sees the parent's commits. The
// override replaces the cascade, so the child is driven explicitly.
func TestHooks_OnParentOverride(t *testing.T) {
	reg := registry.New(8)

	p, err := New("p", reg)
	require.NoError(t, err)

	parentEvents := make(chan types.Event, 16)
	c, err := New("c", reg, p)
	require.NoError(t, err)
	c.WithHooks(Hooks{
		OnParent: func(ev types.Event) error {
			parentEvents <- ev
			return nil
		},
	})
	p.Spawn()
	c.Spawn()

	p.Start()
	waitState(t, p, types.StateRunning)

	select {
	case ev := <-parentEvents:
		assert.Equal(t, types.OriginParent, ev.Origin)
		assert.Equal(t, p.Tag(), ev.Src)
		assert.Equal(t, types.StateRunning, ev.State)
	case <-time.After(2 * time.Second):
		t.Fatal("child never received PARENT event")
	}

	// No cascade happened: the child is still INIT.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, types.StateInit, c.State())

	c.Destroy()
	p.Destroy()
	joinAll(t, p, c)
}

func TestHooks_PostReachesOnMessage(t *testing.T) {
	reg := registry.New(8)

	payloads := make(chan any, 4)
	s, err := New("s", reg)
	require.NoError(t, err)
	s.WithHooks(Hooks{
		OnMessage: func(p any) error {
			payloads <- p
			return nil
		},
	})
	s.Spawn()

	type custom struct{ N int }
	s.Post(custom{N: 7})

	select {
	case p := <-payloads:
		assert.Equal(t, custom{N: 7}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("payload never dispatched")
	}

	s.Destroy()
	joinAll(t, s)
}

func TestHooks_PostWithoutHandlerDropped(t *testing.T) {
	reg := registry.New(8)

	s, err := New("s", reg)
	require.NoError(t, err)
	s.Spawn()

	s.Post("ignored")
	s.Start()
	waitState(t, s, types.StateRunning)

	s.Destroy()
	joinAll(t, s)
}
