package cachegeom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/cachegeom"
)

func TestGeometrySplit(t *testing.T) {
	g, err := cachegeom.NewGeometry(4, 2, 64)
	require.NoError(t, err)

	tag, set, offset := g.Split(cachegeom.Addr(0x1000 + 3*64 + 5))
	assert.Equal(t, uint64(5), offset)
	assert.Equal(t, 3%4, set)
	_ = tag
}

func TestGeometryRejectsNonPowerOfTwoLine(t *testing.T) {
	_, err := cachegeom.NewGeometry(4, 2, 60)
	assert.Error(t, err)
}

func TestGeometryLineAddr(t *testing.T) {
	g, err := cachegeom.NewGeometry(4, 2, 64)
	require.NoError(t, err)

	assert.Equal(t, cachegeom.Addr(0x40), g.LineAddr(cachegeom.Addr(0x45)))
}
