package subsystem

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hutch/pkg/registry"
	"github.com/cuemby/hutch/pkg/types"
)

// Randomized layered DAGs (depth <= 4): every node declares 1..2 parents
// from earlier layers, roots are layer zero. Starting the roots must
// converge the whole graph to RUNNING; destroying the roots must tear
// everything down and empty the registry. Seeded for reproducibility.
func TestProperty_RandomGraphConvergence(t *testing.T) {
	rng := rand.New(rand.NewSource(0x5eed))

	for round := 0; round < 5; round++ {
		depth := 2 + rng.Intn(3) // 2..4 layers
		reg := registry.New(64)

		var layers [][]*Subsystem
		var all []*Subsystem
		seen := make(map[types.Tag]bool)

		for l := 0; l < depth; l++ {
			width := 1 + rng.Intn(3)
			var layer []*Subsystem
			for n := 0; n < width; n++ {
				var parents []*Subsystem
				if l > 0 {
					prev := layers[l-1]
					count := 1 + rng.Intn(2)
					for i := 0; i < count && i < len(prev); i++ {
						parents = append(parents, prev[rng.Intn(len(prev))])
					}
				}
				s, err := New(fmt.Sprintf("r%d-l%d-n%d", round, l, n), reg, parents...)
				require.NoError(t, err)
				s.Spawn()

				// No two live subsystems share a tag.
				require.False(t, seen[s.Tag()], "duplicate tag %s", s.Tag())
				seen[s.Tag()] = true

				layer = append(layer, s)
				all = append(all, s)
			}
			layers = append(layers, layer)
		}

		for _, root := range layers[0] {
			root.Start()
		}
		for _, s := range all {
			waitState(t, s, types.StateRunning)
		}

		// Gating holds by construction here: a node can only have committed
		// RUNNING after the gate saw all parents RUNNING. Spot-check the
		// registry agrees on the committed states.
		for _, s := range all {
			e, err := reg.Get(s.Tag())
			require.NoError(t, err)
			assert.Equal(t, types.StateRunning, e.State)
		}

		for _, root := range layers[0] {
			root.Destroy()
		}
		for _, s := range all {
			waitState(t, s, types.StateDestroyed)
		}
		joinAll(t, all...)

		// Destroyed states stay destroyed.
		time.Sleep(20 * time.Millisecond)
		for _, s := range all {
			assert.Equal(t, types.StateDestroyed, s.State())
		}
		assert.Equal(t, 0, reg.Len(), "registry should be empty after teardown")
	}
}

// Concurrent external triggers against one subsystem must leave it in a
// committed, legal state and never resurrect it after destroy.
func TestProperty_ConcurrentTriggerStorm(t *testing.T) {
	reg := registry.New(8)

	s, err := New("storm", reg)
	require.NoError(t, err)
	s.Spawn()

	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(seed int64) {
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				switch rng.Intn(3) {
				case 0:
					s.Start()
				case 1:
					s.Stop()
				case 2:
					s.Error()
				}
			}
			done <- struct{}{}
		}(int64(g))
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	s.Destroy()
	waitState(t, s, types.StateDestroyed)
	joinAll(t, s)

	s.Start()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, types.StateDestroyed, s.State())
}
