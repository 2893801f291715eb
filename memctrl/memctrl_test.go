package memctrl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/memctrl"
	"github.com/archsim/cohmesh/sim"
)

func TestMemCtrlRespondsAfterFixedLatency(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	mc := memctrl.NewComp("Mem0", engine, sim.GHz, 2, 5)

	requesterComp := sim.NewComponentBase("Requester")
	requester := sim.NewPort(nil, 2, 2, "Requester.Port")
	requesterComp.AddPort(requester.Name(), requester)

	conn := sim.NewDirectConnection("Requester-Mem")
	conn.PlugIn(requester)
	conn.PlugIn(mc.In())

	rspConn := sim.NewDirectConnection("Mem-RequesterRsp")
	rspPort := sim.NewPort(nil, 2, 2, "Requester.RspPort")
	rspConn.PlugIn(rspPort)
	rspConn.PlugIn(mc.Out())

	cmd := &coh.MemCmd{Opcode: coh.MemRead, Addr: 0x40}
	cmd.MsgMeta.ID = sim.GetIDGenerator().Generate()
	cmd.MsgMeta.Src = requester.AsRemote()
	cmd.MsgMeta.Dst = mc.In().AsRemote()
	cmd.RspDst = rspPort.AsRemote()

	require.Nil(t, requester.Send(cmd))

	require.NoError(t, engine.Run())

	rsp := rspPort.PeekIncoming()
	require.NotNil(t, rsp)

	memRsp, ok := rsp.(*coh.MemRsp)
	require.True(t, ok)
	assert.Equal(t, coh.MemReadOkay, memRsp.Opcode)
	assert.Equal(t, cmd.Meta().ID, memRsp.RspTo)
}
