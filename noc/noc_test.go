package noc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/noc"
	"github.com/archsim/cohmesh/sim"
)

type sink struct {
	*sim.ComponentBase
	in sim.Port
}

func newSink(name string) *sink {
	s := &sink{ComponentBase: sim.NewComponentBase(name)}
	s.in = sim.NewPort(s, 2, 2, name+".In")
	s.AddPort(s.in.Name(), s.in)

	return s
}

func (s *sink) NotifyRecv(sim.Port)     {}
func (s *sink) NotifyPortFree(sim.Port) {}
func (s *sink) Handle(sim.Event) error  { return nil }

func TestNocRoutesEnvelopeToDestination(t *testing.T) {
	sim.ResetIDGeneratorForTest()

	engine := sim.NewSerialEngine()
	n := noc.NewComp("Noc", engine, sim.GHz)

	dest := newSink("Dir0")

	destIngress := n.AddEndpoint("Dir0", 2, dest.in)

	src := newSink("CC0")
	srcEgress := sim.NewPort(src, 2, 2, "CC0.NocOut")
	src.AddPort(srcEgress.Name(), srcEgress)

	conn := sim.NewDirectConnection("CC0-Noc")
	conn.PlugIn(srcEgress)
	conn.PlugIn(destIngress)

	payload := &coh.CohSrt{Addr: 0x40}
	payload.MsgMeta.ID = sim.GetIDGenerator().Generate()

	env := &coh.NocMsg{
		Payload: payload,
		Origin:  "CC0",
		Dest:    "Dir0",
	}
	env.MsgMeta.ID = sim.GetIDGenerator().Generate()
	env.MsgMeta.Src = srcEgress.AsRemote()
	env.MsgMeta.Dst = destIngress.AsRemote()

	require.Nil(t, srcEgress.Send(env))

	progressed := n.Tick()
	assert.True(t, progressed)

	delivered := dest.in.PeekIncoming()
	require.NotNil(t, delivered)
	assert.Equal(t, payload, delivered)
}
