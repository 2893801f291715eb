package diragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/diragent"
	"github.com/archsim/cohmesh/sim"
)

func dirGeom(t *testing.T) cachegeom.Geometry {
	t.Helper()

	geom, err := cachegeom.NewGeometry(4, 2, 64)
	require.NoError(t, err)

	return geom
}

func newDir(t *testing.T) *diragent.Comp {
	t.Helper()

	engine := sim.NewSerialEngine()

	return diragent.NewComp("Dir0", engine, sim.GHz, dirGeom(t), 4, 4, 4, "Dir0", "Dir0.NocIn", "LLC0.CmdIn")
}

func deliverCohCmd(t *testing.T, dir *diragent.Comp, op coh.AceOp, addr cachegeom.Addr, origin sim.RemotePort) *coh.CohCmd {
	t.Helper()

	cmd := &coh.CohCmd{Opcode: op, Addr: addr, Origin: origin}
	cmd.MsgMeta.ID = sim.GetIDGenerator().Generate()
	cmd.MsgMeta.Src = origin
	cmd.MsgMeta.Dst = dir.NocIn().AsRemote()
	cmd.Txn = coh.NewTransaction(addr)

	require.Nil(t, dir.NocIn().Deliver(cmd))

	return cmd
}

func popEnvelope(t *testing.T, p sim.Port) *coh.NocMsg {
	t.Helper()

	env, ok := p.PeekOutgoing().(*coh.NocMsg)
	require.True(t, ok)
	p.RetrieveOutgoing()

	return env
}

func deliverCohSnpRsp(t *testing.T, dir *diragent.Comp, snpID string, dt, pd, isShared bool) {
	t.Helper()

	rsp := &coh.CohSnpRsp{Dt: dt, Pd: pd, IsShared: isShared, RspTo: snpID}
	rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	rsp.MsgMeta.Src = "Peer.NocOut"
	rsp.MsgMeta.Dst = dir.NocIn().AsRemote()

	require.Nil(t, dir.NocIn().Deliver(rsp))
}

func deliverLLCFillRsp(t *testing.T, dir *diragent.Comp, cmdID string) {
	t.Helper()

	rsp := &coh.LLCRsp{Opcode: coh.LLCFill, Status: coh.LLCOkay, RspTo: cmdID}
	rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	rsp.MsgMeta.Src = "LLC0.RspOut"
	rsp.MsgMeta.Dst = dir.LlcRspIn().AsRemote()

	require.Nil(t, dir.LlcRspIn().Deliver(rsp))
}

func TestDirReadSharedMissGoesThroughLLC(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	dir := newDir(t)

	cmd := deliverCohCmd(t, dir, coh.ReadShared, cachegeom.Addr(0x40), "CC0")

	require.True(t, dir.Tick())
	cmdRsp := popEnvelope(t, dir.NocOut()).Payload.(*coh.CohCmdRsp)
	assert.Equal(t, cmd.Meta().ID, cmdRsp.RspTo)

	require.True(t, dir.Tick())
	fill, ok := dir.LlcCmdOut().PeekOutgoing().(*coh.LLCCmd)
	require.True(t, ok)
	assert.Equal(t, coh.LLCFill, fill.Opcode)
	assert.Equal(t, sim.RemotePort("CC0"), fill.Agent)
	dir.LlcCmdOut().RetrieveOutgoing()

	deliverLLCFillRsp(t, dir, fill.Meta().ID)
	require.True(t, dir.Tick())

	require.True(t, dir.Tick())
	dtEnv := popEnvelope(t, dir.NocOut())
	dt, ok := dtEnv.Payload.(*coh.Dt)
	require.True(t, ok)
	_ = dt
	assert.Equal(t, sim.RemotePort("CC0"), dtEnv.Dest)

	require.True(t, dir.Tick())
	end := popEnvelope(t, dir.NocOut()).Payload.(*coh.CohEnd)
	assert.False(t, end.IsShared)
	assert.False(t, end.PassDirty)
	assert.Equal(t, 1, end.DtCount)
	assert.Equal(t, cmd.Meta().ID, end.RspTo)

	state, present := dir.Lookup(cachegeom.Addr(0x40))
	require.True(t, present)
	assert.Equal(t, diragent.M, state)

	assert.False(t, dir.Tick())
}

func TestDirReadUniqueWithDirtyOwnerSnoopsAndSkipsLLC(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	dir := newDir(t)

	first := deliverCohCmd(t, dir, coh.ReadUnique, cachegeom.Addr(0x80), "CC0")
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	require.True(t, dir.Tick())
	fill := dir.LlcCmdOut().PeekOutgoing().(*coh.LLCCmd)
	dir.LlcCmdOut().RetrieveOutgoing()
	deliverLLCFillRsp(t, dir, fill.Meta().ID)
	require.True(t, dir.Tick())
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	_ = first

	state, present := dir.Lookup(cachegeom.Addr(0x80))
	require.True(t, present)
	assert.Equal(t, diragent.M, state)

	second := deliverCohCmd(t, dir, coh.ReadUnique, cachegeom.Addr(0x80), "CC1")
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()

	require.True(t, dir.Tick())
	snpEnv := popEnvelope(t, dir.NocOut())
	snp, ok := snpEnv.Payload.(*coh.CohSnp)
	require.True(t, ok)
	assert.Equal(t, coh.SnpReadUnique, snp.Opcode)
	assert.Equal(t, sim.RemotePort("CC1"), snp.Agent)
	assert.Equal(t, sim.RemotePort("CC0"), snpEnv.Dest)

	deliverCohSnpRsp(t, dir, snp.Meta().ID, true, true, false)
	require.True(t, dir.Tick())

	require.True(t, dir.Tick())
	end := popEnvelope(t, dir.NocOut()).Payload.(*coh.CohEnd)
	assert.False(t, end.IsShared)
	assert.True(t, end.PassDirty)
	assert.Equal(t, 1, end.DtCount)
	assert.Equal(t, second.Meta().ID, end.RspTo)

	state, present = dir.Lookup(cachegeom.Addr(0x80))
	require.True(t, present)
	assert.Equal(t, diragent.M, state)

	assert.False(t, dir.Tick())
}

func TestDirCleanUniqueInvalidatesSharers(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	dir := newDir(t)

	c0 := deliverCohCmd(t, dir, coh.ReadShared, cachegeom.Addr(0xc0), "CC0")
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	require.True(t, dir.Tick())
	fill0 := dir.LlcCmdOut().PeekOutgoing().(*coh.LLCCmd)
	dir.LlcCmdOut().RetrieveOutgoing()
	deliverLLCFillRsp(t, dir, fill0.Meta().ID)
	require.True(t, dir.Tick())
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	_ = c0

	c1 := deliverCohCmd(t, dir, coh.ReadShared, cachegeom.Addr(0xc0), "CC1")
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	require.True(t, dir.Tick())
	ownerEnv := popEnvelope(t, dir.NocOut())
	ownerSnp := ownerEnv.Payload.(*coh.CohSnp)
	assert.Equal(t, coh.SnpReadShared, ownerSnp.Opcode)
	assert.Equal(t, sim.RemotePort("CC0"), ownerEnv.Dest)
	deliverCohSnpRsp(t, dir, ownerSnp.Meta().ID, true, false, true)
	require.True(t, dir.Tick())
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	_ = c1

	state, present := dir.Lookup(cachegeom.Addr(0xc0))
	require.True(t, present)
	assert.Equal(t, diragent.S, state)

	cu := deliverCohCmd(t, dir, coh.CleanUnique, cachegeom.Addr(0xc0), "CC0")
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()

	require.True(t, dir.Tick())
	snpEnv := popEnvelope(t, dir.NocOut())
	snp := snpEnv.Payload.(*coh.CohSnp)
	assert.Equal(t, coh.SnpMakeInvalid, snp.Opcode)
	assert.Equal(t, sim.RemotePort("CC1"), snpEnv.Dest)
	assert.Equal(t, sim.RemotePort(""), snp.Agent)

	deliverCohSnpRsp(t, dir, snp.Meta().ID, false, false, false)
	require.True(t, dir.Tick())

	require.True(t, dir.Tick())
	end := popEnvelope(t, dir.NocOut()).Payload.(*coh.CohEnd)
	assert.False(t, end.IsShared)
	assert.False(t, end.PassDirty)
	assert.Equal(t, 0, end.DtCount)
	assert.Equal(t, cu.Meta().ID, end.RspTo)

	state, present = dir.Lookup(cachegeom.Addr(0xc0))
	require.True(t, present)
	assert.Equal(t, diragent.M, state)

	assert.False(t, dir.Tick())
}

func TestDirTriggerRecallFoldsDirtyOwnerBackIntoLLC(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	dir := newDir(t)

	req := deliverCohCmd(t, dir, coh.ReadUnique, cachegeom.Addr(0x100), "CC0")
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	require.True(t, dir.Tick())
	fill := dir.LlcCmdOut().PeekOutgoing().(*coh.LLCCmd)
	dir.LlcCmdOut().RetrieveOutgoing()
	deliverLLCFillRsp(t, dir, fill.Meta().ID)
	require.True(t, dir.Tick())
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	require.True(t, dir.Tick())
	dir.NocOut().RetrieveOutgoing()
	_ = req

	state, present := dir.Lookup(cachegeom.Addr(0x100))
	require.True(t, present)
	assert.Equal(t, diragent.M, state)

	assert.True(t, dir.TriggerRecall(cachegeom.Addr(0x100)))

	snpEnv := popEnvelope(t, dir.NocOut())
	snp, ok := snpEnv.Payload.(*coh.CohSnp)
	require.True(t, ok)
	assert.Equal(t, coh.SnpCleanInvalid, snp.Opcode)
	assert.Equal(t, sim.RemotePort(""), snp.Agent)
	assert.Equal(t, sim.RemotePort("CC0"), snpEnv.Dest)

	deliverCohSnpRsp(t, dir, snp.Meta().ID, false, true, false)
	require.True(t, dir.Tick())

	_, present = dir.Lookup(cachegeom.Addr(0x100))
	assert.False(t, present)

	require.True(t, dir.Tick())
	evict, ok := dir.LlcCmdOut().PeekOutgoing().(*coh.LLCCmd)
	require.True(t, ok)
	assert.Equal(t, coh.LLCEvict, evict.Opcode)

	assert.False(t, dir.TriggerRecall(cachegeom.Addr(0x100)))
}
