package motiongov

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type layerFixture struct {
	arena   *ElementArena
	surface *MemorySurface
	manager *LayerManager
	now     time.Time
}

func newLayerFixture(ceiling int) *layerFixture {
	f := &layerFixture{
		arena:   NewElementArena(),
		surface: NewMemorySurface(),
		now:     time.Unix(0, 0),
	}
	f.manager = NewLayerManager(f.surface, ceiling, true, func() time.Time {
		f.now = f.now.Add(time.Millisecond)
		return f.now
	})

	return f
}

func TestEnableBelowCeilingAlwaysAdmits(t *testing.T) {
	f := newLayerFixture(20)

	for i := 0; i < 20; i++ {
		assert.True(t, f.manager.EnableGPULayer(f.arena.Acquire(), 0))
	}
	assert.Equal(t, 20, f.manager.ActiveLayerCount())
}

func TestEvictionAtCeiling(t *testing.T) {
	f := newLayerFixture(2)
	a := f.arena.Acquire()
	b := f.arena.Acquire()
	c := f.arena.Acquire()

	require.True(t, f.manager.EnableGPULayer(a, 3))
	require.True(t, f.manager.EnableGPULayer(b, 3))
	require.Equal(t, 2, f.manager.ActiveLayerCount())

	require.True(t, f.manager.EnableGPULayer(c, 8), "critical priority evicts at the ceiling")
	assert.Equal(t, 2, f.manager.ActiveLayerCount(), "active size stays at the ceiling")

	// C is composited; exactly one of A/B was evicted (the older, A).
	assert.NotEmpty(t, f.surface.Hint(c, HintWillChange))
	assert.Empty(t, f.surface.Hint(a, HintWillChange), "oldest equal-lowest layer goes first")
	assert.NotEmpty(t, f.surface.Hint(b, HintWillChange))
}

func TestRefusalWithoutEvictionCandidate(t *testing.T) {
	f := newLayerFixture(2)
	a := f.arena.Acquire()
	b := f.arena.Acquire()

	require.True(t, f.manager.EnableGPULayer(a, 5))
	require.True(t, f.manager.EnableGPULayer(b, 5))

	assert.False(t, f.manager.EnableGPULayer(f.arena.Acquire(), 5),
		"equal priority below critical does not evict")
	assert.False(t, f.manager.EnableGPULayer(f.arena.Acquire(), 4))
	assert.Equal(t, 2, f.manager.ActiveLayerCount())
}

func TestCriticalRefusedAbsentCandidate(t *testing.T) {
	f := newLayerFixture(2)

	require.True(t, f.manager.EnableGPULayer(f.arena.Acquire(), 10))
	require.True(t, f.manager.EnableGPULayer(f.arena.Acquire(), 10))

	assert.False(t, f.manager.EnableGPULayer(f.arena.Acquire(), 8),
		"no layer of priority <= 8 to evict")
	assert.Equal(t, 2, f.manager.ActiveLayerCount())
}

func TestCeilingNeverExceeded(t *testing.T) {
	f := newLayerFixture(5)

	for i := 0; i < 50; i++ {
		f.manager.EnableGPULayer(f.arena.Acquire(), Priority(i%11))
		require.LessOrEqual(t, f.manager.ActiveLayerCount(), 5)
	}
}

func TestDisableRevertsOnlyManagedHints(t *testing.T) {
	f := newLayerFixture(20)
	el := f.arena.Acquire()

	require.True(t, f.manager.EnableGPULayer(el, 5))
	assert.Equal(t, "translateZ(0)", f.surface.Hint(el, HintTransform))
	assert.Equal(t, "hidden", f.surface.Hint(el, HintBackfaceVisibility))
	assert.Equal(t, "isolate", f.surface.Hint(el, HintIsolation))

	f.manager.DisableGPULayer(el)
	for _, hint := range []string{
		HintWillChange, HintTransform, HintBackfaceVisibility,
		HintIsolation, HintPerspective, HintFontSmoothing,
	} {
		assert.Empty(t, f.surface.Hint(el, hint), "hint %s reverted", hint)
	}
}

func TestDisablePreservesCallerTransform(t *testing.T) {
	f := newLayerFixture(20)
	el := f.arena.Acquire()
	f.surface.SetHint(el, HintTransform, "scale(1.2)")

	require.True(t, f.manager.EnableGPULayer(el, 5))
	assert.Equal(t, "scale(1.2)", f.surface.Hint(el, HintTransform),
		"caller-authored transform not overwritten")

	f.manager.DisableGPULayer(el)
	assert.Equal(t, "scale(1.2)", f.surface.Hint(el, HintTransform),
		"caller-authored transform survives revert")
	assert.Empty(t, f.surface.Hint(el, HintWillChange))
}

func TestDisableIdempotent(t *testing.T) {
	f := newLayerFixture(20)
	el := f.arena.Acquire()

	require.True(t, f.manager.EnableGPULayer(el, 5))
	f.manager.DisableGPULayer(el)
	assert.NotPanics(t, func() { f.manager.DisableGPULayer(el) })
	assert.Equal(t, 0, f.manager.ActiveLayerCount())

	// Never-enabled element is a no-op too.
	assert.NotPanics(t, func() { f.manager.DisableGPULayer(f.arena.Acquire()) })
}

func TestReEnableRefreshesPriority(t *testing.T) {
	f := newLayerFixture(2)
	a := f.arena.Acquire()
	b := f.arena.Acquire()

	require.True(t, f.manager.EnableGPULayer(a, 2))
	require.True(t, f.manager.EnableGPULayer(b, 5))
	require.True(t, f.manager.EnableGPULayer(a, 9), "re-enable refreshes in place")
	require.Equal(t, 2, f.manager.ActiveLayerCount())

	// B is now the lowest and gets evicted by the next admission.
	require.True(t, f.manager.EnableGPULayer(f.arena.Acquire(), 6))
	assert.Empty(t, f.surface.Hint(b, HintWillChange))
	assert.NotEmpty(t, f.surface.Hint(a, HintWillChange))
}

func TestDisabledAccelerationRefusesAll(t *testing.T) {
	surface := NewMemorySurface()
	m := NewLayerManager(surface, 20, false, nil)
	arena := NewElementArena()

	el := arena.Acquire()
	assert.False(t, m.EnableGPULayer(el, 10))
	assert.Empty(t, surface.Hint(el, HintWillChange), "styles untouched when disabled")
}

func TestNilSurfaceRefusesAll(t *testing.T) {
	m := NewLayerManager(nil, 20, true, nil)
	assert.False(t, m.EnableGPULayer(NewElementArena().Acquire(), 10))
}

func TestArenaHandles(t *testing.T) {
	arena := NewElementArena()

	a := arena.Acquire()
	b := arena.Acquire()
	assert.NotEqual(t, a, b)
	assert.True(t, arena.Valid(a))
	assert.True(t, ElementID{}.IsZero())

	arena.Release(a)
	assert.False(t, arena.Valid(a))

	// Recycled slot gets a new generation; the stale handle stays dead.
	c := arena.Acquire()
	assert.True(t, arena.Valid(c))
	assert.False(t, arena.Valid(a))
	assert.NotEqual(t, a, c)

	assert.NotPanics(t, func() { arena.Release(a) }, "double release is a no-op")
}

func TestEvictionStress(t *testing.T) {
	f := newLayerFixture(3)

	low := make([]ElementID, 3)
	for i := range low {
		low[i] = f.arena.Acquire()
		require.True(t, f.manager.EnableGPULayer(low[i], 1))
	}

	for i := 0; i < 3; i++ {
		el := f.arena.Acquire()
		require.True(t, f.manager.EnableGPULayer(el, 9), "admission %d", i)
		assert.Equal(t, 3, f.manager.ActiveLayerCount())
	}

	for i, el := range low {
		assert.Empty(t, f.surface.Hint(el, HintWillChange),
			fmt.Sprintf("low-priority layer %d evicted", i))
	}
}
