// Package moesi implements protocol.Builder for the MOESI-L1/MOESI-L2
// coherence stack: §4.4-§4.7's four agent kinds, wired up exactly the
// way ccagent, l2agent and diragent already build their internal state
// machines.
package moesi

import (
	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/ccagent"
	"github.com/archsim/cohmesh/config"
	"github.com/archsim/cohmesh/diragent"
	"github.com/archsim/cohmesh/l1agent"
	"github.com/archsim/cohmesh/l2agent"
	"github.com/archsim/cohmesh/sim"
)

// Name is the protocol name registered with a protocol.Registry.
const Name = "moesi"

// Builder implements protocol.Builder for the MOESI stack. It carries no
// state of its own: every agent resolves its own geometry and neighbors
// from the config record and destination ports handed to it.
type Builder struct{}

// New creates a MOESI Builder.
func New() Builder { return Builder{} }

func geometry(g config.CacheGeomConfig) cachegeom.Geometry {
	geom, err := cachegeom.NewGeometry(g.SetsN, g.WaysN, g.LineBytesN)
	if err != nil {
		panic(err)
	}

	return geom
}

// CreateL1 builds one private L1.
func (Builder) CreateL1(
	name string, engine sim.Engine, freq sim.Freq, cfg config.L1CacheAgentConfig,
	l2Dst sim.RemotePort, onEvictDirty func(cachegeom.Addr),
) sim.Component {
	return l1agent.NewComp(name, engine, freq, geometry(cfg.Geometry), cfg.QueueDepth, l2Dst, onEvictDirty)
}

// CreateL2 builds the cluster's shared L2.
func (Builder) CreateL2(
	name string, engine sim.Engine, freq sim.Freq, cfg config.L2CacheAgentConfig, numL1 int,
	ccDst sim.RemotePort,
) sim.Component {
	_ = numL1 // MOESI-L2's ingress is a single shared port, not one per L1

	return l2agent.NewComp(name, engine, freq, geometry(cfg.Geometry), cfg.QueueDepth, ccDst)
}

// CreateCC builds the cluster's cache controller.
func (Builder) CreateCC(
	name string, engine sim.Engine, freq sim.Freq, cfg config.CCAgentConfig, creditsPerClass int,
	nocID, nocIngress sim.RemotePort, dirMapper ccagent.DirMapper, l2SnpDst sim.RemotePort,
) sim.Component {
	return ccagent.NewComp(
		name, engine, freq, cfg.QueueDepth, cfg.TxnTableDepth, creditsPerClass,
		nocID, nocIngress, dirMapper, l2SnpDst,
	)
}

// CreateDir builds a home directory and its co-located last-level cache
// as two independently ticking components, connected only by the
// LLCCmd/LLCRsp pair diragent.NewComp expects to find at llcDst.
func (Builder) CreateDir(
	name string, engine sim.Engine, freq sim.Freq, cfg config.DirAgentConfig, creditsPerClass int,
	nocID, nocIngress, memDst sim.RemotePort,
) (dir sim.Component, llc sim.Component) {
	llcName := name + ".LLC"
	l := diragent.NewLLC(llcName, engine, freq, geometry(cfg.LLC.Geometry), cfg.LLC.QueueDepth, memDst)

	d := diragent.NewComp(
		name, engine, freq, geometry(cfg.LLC.Geometry), cfg.QueueDepth, cfg.TxnTableDepth, creditsPerClass,
		nocID, nocIngress, l.CmdIn().AsRemote(),
	)

	return d, l
}
