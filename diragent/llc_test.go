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

func llcGeom(t *testing.T) cachegeom.Geometry {
	t.Helper()

	geom, err := cachegeom.NewGeometry(4, 2, 64)
	require.NoError(t, err)

	return geom
}

func deliverLLCCmd(t *testing.T, l *diragent.LLC, op coh.LLCOp, addr cachegeom.Addr) *coh.LLCCmd {
	t.Helper()

	cmd := &coh.LLCCmd{Opcode: op, Addr: addr, Agent: "CC0"}
	cmd.MsgMeta.ID = sim.GetIDGenerator().Generate()
	cmd.MsgMeta.Src = "Dir0.LlcCmdOut"
	cmd.MsgMeta.Dst = l.CmdIn().AsRemote()
	cmd.Txn = coh.NewTransaction(addr)

	require.Nil(t, l.CmdIn().Deliver(cmd))

	return cmd
}

func TestLLCFillMissRoundTripsThroughMemory(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	l := diragent.NewLLC("LLC0", engine, sim.GHz, llcGeom(t), 3, "Mem0.CmdIn")

	cmd := deliverLLCCmd(t, l, coh.LLCFill, cachegeom.Addr(0x40))

	assert.True(t, l.Tick())

	mem, ok := l.MemOut().PeekOutgoing().(*coh.MemCmd)
	require.True(t, ok)
	assert.Equal(t, coh.MemRead, mem.Opcode)
	l.MemOut().RetrieveOutgoing()

	assert.False(t, l.Resident(cachegeom.Addr(0x40)))

	memRsp := &coh.MemRsp{Opcode: coh.MemReadOkay, RspTo: mem.Meta().ID}
	memRsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	memRsp.MsgMeta.Src = "Mem0.RspOut"
	memRsp.MsgMeta.Dst = l.MemIn().AsRemote()

	require.Nil(t, l.MemIn().Deliver(memRsp))
	assert.True(t, l.Tick())

	assert.True(t, l.Resident(cachegeom.Addr(0x40)))

	rsp, ok := l.RspOut().PeekOutgoing().(*coh.LLCRsp)
	require.True(t, ok)
	assert.Equal(t, coh.LLCOkay, rsp.Status)
	assert.Equal(t, cmd.Meta().ID, rsp.RspTo)

	assert.False(t, l.Tick())
}

func TestLLCFillHitAnswersImmediately(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	l := diragent.NewLLC("LLC0", engine, sim.GHz, llcGeom(t), 3, "Mem0.CmdIn")

	deliverLLCCmd(t, l, coh.LLCFill, cachegeom.Addr(0x40))
	require.True(t, l.Tick())
	mem := l.MemOut().PeekOutgoing().(*coh.MemCmd)
	l.MemOut().RetrieveOutgoing()

	memRsp := &coh.MemRsp{Opcode: coh.MemReadOkay, RspTo: mem.Meta().ID}
	memRsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	memRsp.MsgMeta.Src = "Mem0.RspOut"
	memRsp.MsgMeta.Dst = l.MemIn().AsRemote()
	require.Nil(t, l.MemIn().Deliver(memRsp))
	require.True(t, l.Tick())
	l.RspOut().RetrieveOutgoing()

	cmd2 := deliverLLCCmd(t, l, coh.LLCFill, cachegeom.Addr(0x40))
	assert.True(t, l.Tick())

	assert.Nil(t, l.MemOut().PeekOutgoing())

	rsp, ok := l.RspOut().PeekOutgoing().(*coh.LLCRsp)
	require.True(t, ok)
	assert.Equal(t, cmd2.Meta().ID, rsp.RspTo)
}

func TestLLCEvictWritesBackThenDropsTag(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	l := diragent.NewLLC("LLC0", engine, sim.GHz, llcGeom(t), 3, "Mem0.CmdIn")

	deliverLLCCmd(t, l, coh.LLCFill, cachegeom.Addr(0x40))
	require.True(t, l.Tick())
	mem := l.MemOut().PeekOutgoing().(*coh.MemCmd)
	l.MemOut().RetrieveOutgoing()
	memRsp := &coh.MemRsp{Opcode: coh.MemReadOkay, RspTo: mem.Meta().ID}
	memRsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	memRsp.MsgMeta.Src = "Mem0.RspOut"
	memRsp.MsgMeta.Dst = l.MemIn().AsRemote()
	require.Nil(t, l.MemIn().Deliver(memRsp))
	require.True(t, l.Tick())
	l.RspOut().RetrieveOutgoing()

	require.True(t, l.Resident(cachegeom.Addr(0x40)))

	evict := deliverLLCCmd(t, l, coh.LLCEvict, cachegeom.Addr(0x40))
	assert.True(t, l.Tick())

	memWr, ok := l.MemOut().PeekOutgoing().(*coh.MemCmd)
	require.True(t, ok)
	assert.Equal(t, coh.MemWrite, memWr.Opcode)
	l.MemOut().RetrieveOutgoing()

	assert.True(t, l.Resident(cachegeom.Addr(0x40)))

	wrRsp := &coh.MemRsp{Opcode: coh.MemWriteOkay, RspTo: memWr.Meta().ID}
	wrRsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	wrRsp.MsgMeta.Src = "Mem0.RspOut"
	wrRsp.MsgMeta.Dst = l.MemIn().AsRemote()
	require.Nil(t, l.MemIn().Deliver(wrRsp))
	assert.True(t, l.Tick())

	assert.False(t, l.Resident(cachegeom.Addr(0x40)))

	rsp, ok := l.RspOut().PeekOutgoing().(*coh.LLCRsp)
	require.True(t, ok)
	assert.Equal(t, evict.Meta().ID, rsp.RspTo)
}

func TestLLCPutLineInstallsWithNoMemoryTraffic(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	l := diragent.NewLLC("LLC0", engine, sim.GHz, llcGeom(t), 3, "Mem0.CmdIn")

	cmd := deliverLLCCmd(t, l, coh.LLCPutLine, cachegeom.Addr(0x40))
	assert.True(t, l.Tick())

	assert.Nil(t, l.MemOut().PeekOutgoing())
	assert.True(t, l.Resident(cachegeom.Addr(0x40)))

	rsp, ok := l.RspOut().PeekOutgoing().(*coh.LLCRsp)
	require.True(t, ok)
	assert.Equal(t, coh.LLCOkay, rsp.Status)
	assert.Equal(t, cmd.Meta().ID, rsp.RspTo)

	assert.False(t, l.Tick())
}
