package cachegeom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/cachegeom"
)

func TestTagStoreInstallLookup(t *testing.T) {
	g, err := cachegeom.NewGeometry(2, 2, 64)
	require.NoError(t, err)

	ts := cachegeom.NewTagStore[string](g)

	_, evicted := ts.Install(cachegeom.Addr(0x0), "I")
	assert.False(t, evicted)

	data, ok := ts.Lookup(cachegeom.Addr(0x0))
	require.True(t, ok)
	assert.Equal(t, "I", data)
}

func TestTagStoreEvictsLRU(t *testing.T) {
	g, err := cachegeom.NewGeometry(1, 2, 64)
	require.NoError(t, err)

	ts := cachegeom.NewTagStore[string](g)

	// Both lines map to set 0 with the same geometry (2 ways, 1 set).
	_, evicted := ts.Install(cachegeom.Addr(0x0), "A")
	assert.False(t, evicted)
	_, evicted = ts.Install(cachegeom.Addr(0x40), "B")
	assert.False(t, evicted)

	// Touch A so B becomes LRU.
	_, ok := ts.Lookup(cachegeom.Addr(0x0))
	require.True(t, ok)

	victim, evicted := ts.Install(cachegeom.Addr(0x80), "C")
	require.True(t, evicted)
	assert.Equal(t, "B", victim)
}

func TestTagStoreUpdateAndRemove(t *testing.T) {
	g, err := cachegeom.NewGeometry(2, 2, 64)
	require.NoError(t, err)

	ts := cachegeom.NewTagStore[int](g)
	ts.Install(cachegeom.Addr(0x0), 1)

	ok := ts.Update(cachegeom.Addr(0x0), func(v *int) { *v = 2 })
	require.True(t, ok)

	data, _ := ts.Lookup(cachegeom.Addr(0x0))
	assert.Equal(t, 2, data)

	removed, ok := ts.Remove(cachegeom.Addr(0x0))
	require.True(t, ok)
	assert.Equal(t, 2, removed)

	_, ok = ts.Lookup(cachegeom.Addr(0x0))
	assert.False(t, ok)
}
