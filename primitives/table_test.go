package primitives_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/primitives"
)

func TestTableInsertLookupRemove(t *testing.T) {
	tb := primitives.NewTable[string, int]("txn", 2)

	require.NoError(t, tb.Insert("t1", 1))
	require.NoError(t, tb.Insert("t2", 2))

	err := tb.Insert("t3", 3)
	assert.ErrorIs(t, err, primitives.ErrFull)

	v, ok := tb.Lookup("t1")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	tb.Remove("t1")
	require.NoError(t, tb.Insert("t3", 3))
}

func TestTableNonFullCallback(t *testing.T) {
	tb := primitives.NewTable[string, int]("txn", 1)
	fired := 0
	tb.OnNonFull(func() { fired++ })

	require.NoError(t, tb.Insert("t1", 1))
	assert.True(t, tb.Full())

	tb.Remove("t1")
	assert.Equal(t, 1, fired)
}

func TestTableUpdateExistingKeyNeverOverflows(t *testing.T) {
	tb := primitives.NewTable[string, int]("txn", 1)
	require.NoError(t, tb.Insert("t1", 1))
	require.NoError(t, tb.Insert("t1", 2))

	v, _ := tb.Lookup("t1")
	assert.Equal(t, 2, v)
}
