package coh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

func TestCloneAssignsFreshID(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	msg := &coh.CpuL1Cmd{Opcode: coh.Load, Addr: cachegeom.Addr(0x40)}
	msg.MsgMeta.ID = sim.GetIDGenerator().Generate()

	clone := msg.Clone().(*coh.CpuL1Cmd)

	assert.NotEqual(t, msg.Meta().ID, clone.Meta().ID)
	assert.Equal(t, msg.Opcode, clone.Opcode)
	assert.Equal(t, msg.Addr, clone.Addr)
}

func TestCohSnpIsRecall(t *testing.T) {
	recall := &coh.CohSnp{Opcode: coh.SnpCleanInvalid, Agent: ""}
	assert.True(t, recall.IsRecall())

	intervention := &coh.CohSnp{Opcode: coh.SnpReadShared, Agent: "CC0.Ingress"}
	assert.False(t, intervention.IsRecall())
}

func TestTransactionIdentityIsStable(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	txn := coh.NewTransaction(cachegeom.Addr(0x0))
	require.NotEmpty(t, txn.ID())
	assert.Equal(t, cachegeom.Addr(0x0), txn.Addr())
}
