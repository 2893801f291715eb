package cpuagent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/cpuagent"
	"github.com/archsim/cohmesh/sim"
	"github.com/archsim/cohmesh/stimulus"
)

func TestCpuIssuesAtStimulusTime(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	prog := stimulus.NewProgrammatic([]int{0})
	require.NoError(t, prog.PushStimulus(0, coh.Load, cachegeom.Addr(0x40)))

	cpu := cpuagent.NewComp("Cpu0", engine, sim.GHz, 0, prog, 3, "L1.In")

	sink := sim.NewComponentBase("L1")
	l1In := sim.NewPort(nil, 3, 3, "L1.In")
	sink.AddPort(l1In.Name(), l1In)

	conn := sim.NewDirectConnection("Cpu0-L1")
	conn.PlugIn(cpu.L1Out())
	conn.PlugIn(l1In)

	progressed := cpu.Tick()
	assert.True(t, progressed)
	assert.Equal(t, 1, cpu.Registry().IssueN())

	msg := l1In.PeekIncoming()
	require.NotNil(t, msg)

	req, ok := msg.(*coh.CpuL1Cmd)
	require.True(t, ok)
	assert.Equal(t, coh.Load, req.Opcode)
	assert.Equal(t, cachegeom.Addr(0x40), req.Addr)
}

func TestCpuRetiresOnResponse(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	prog := stimulus.NewProgrammatic([]int{0})

	cpu := cpuagent.NewComp("Cpu0", engine, sim.GHz, 0, prog, 3, "L1.In")

	txn := coh.NewTransaction(cachegeom.Addr(0x40))
	cpu.Registry().Start(txn)

	rsp := &coh.L1CpuRsp{}
	rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	rsp.MsgMeta.Src = "L1.Out"
	rsp.MsgMeta.Dst = cpu.L1In().AsRemote()
	rsp.Txn = txn

	require.Nil(t, cpu.L1In().Deliver(rsp))

	progressed := cpu.Tick()
	assert.True(t, progressed)
	assert.Equal(t, 1, cpu.Registry().RetireN())
	assert.Equal(t, 0, cpu.Registry().Outstanding())
}
