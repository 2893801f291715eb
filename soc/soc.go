// Package soc elaborates a config.SocConfig into a fully wired,
// ready-to-run simulation: it is the redesign of the source's ad hoc
// construct_line/apply wiring into an explicit builder that resolves a
// protocol.Builder from a protocol.Registry and connects every agent's
// ports the way §6 describes the fabric's static topology.
//
// Every port in this fabric is named <componentName>+"."+<suffix>, a
// convention every agent package follows without exception, so this
// package computes a neighbor's destination port name as a plain string
// before that neighbor's component object exists. That is what lets a
// cluster cache controller be constructed with its home directory's NOC
// identity, and a directory with a memory controller's ingress name,
// with no two-pass construction or forward-declared stand-ins.
package soc

import (
	"fmt"
	"math"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/ccagent"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/config"
	"github.com/archsim/cohmesh/cpuagent"
	"github.com/archsim/cohmesh/l2agent"
	"github.com/archsim/cohmesh/memctrl"
	"github.com/archsim/cohmesh/noc"
	"github.com/archsim/cohmesh/protocol"
	"github.com/archsim/cohmesh/sim"
	"github.com/archsim/cohmesh/stimulus"
)

// Freq is the fabric-wide tick rate every ticking component shares.
// Nothing in config.SocConfig names a per-agent clock, so one shared
// rate stands in for every agent's cycle time; MemModelConfig.LatencyNs
// and friends are converted against it.
const Freq = sim.GHz

// System is one fully elaborated, registered simulation.
type System struct {
	Sim       *sim.Simulation
	Sequencer *sim.SimSequencer

	CPUs    map[string]*cpuagent.Comp
	CCs     map[string]sim.Component
	Dirs    map[string]sim.Component
	L2s     map[string]sim.Component
	L1s     map[string]sim.Component
	LLCs    map[string]sim.Component
	MemCtrl map[string]sim.Component
	Noc     sim.Component
}

// l1Registrar is the RegisterL1 surface a Builder's L2 must expose;
// matched structurally so this package never imports a concrete l2agent
// type, only the l2agent.L1BackDoor interface l1agent.Comp already
// satisfies.
type l1Registrar interface {
	RegisterL1(key sim.RemotePort, l1 l2agent.L1BackDoor)
}

// dirtyNotifier is the NoteL1DirtyEvict surface a Builder's L2 must
// expose for the L1-eviction back door.
type dirtyNotifier interface {
	NoteL1DirtyEvict(addr cachegeom.Addr)
}

// creditReceiver is the CreditBack surface a Builder's CC or directory
// must expose to have its per-(class,dest) fabric credits replenished
// when the NOC actually transfers one of its outbound messages.
type creditReceiver interface {
	CreditBack(class coh.Class, dest sim.RemotePort)
}

func cyclesFor(latencyNs float64) int {
	periodNs := float64(Freq.Period()) * 1e9
	if latencyNs <= 0 {
		return 1
	}

	return int(math.Max(1, math.Round(latencyNs/periodNs)))
}

// Build elaborates cfg against the protocol registered as cfg.Protocol,
// wiring every agent's local-bus and NOC connections, and returns a
// System ready for a monitor sink to attach to and a SimSequencer to
// run. ctx is the stimulus source every CPU in the config polls.
func Build(cfg *config.SocConfig, reg *protocol.Registry, ctx stimulus.Context) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}

	cfg.ApplyDefaults()

	builder, err := reg.Get(cfg.Protocol)
	if err != nil {
		return nil, fmt.Errorf("soc: %w", err)
	}

	simu := sim.NewSimulation()
	engine := simu.Engine()

	sys := &System{
		Sim:     simu,
		CPUs:    make(map[string]*cpuagent.Comp),
		CCs:     make(map[string]sim.Component),
		Dirs:    make(map[string]sim.Component),
		L2s:     make(map[string]sim.Component),
		L1s:     make(map[string]sim.Component),
		LLCs:    make(map[string]sim.Component),
		MemCtrl: make(map[string]sim.Component),
	}

	nocComp := noc.NewComp("Noc", engine, Freq)
	simu.RegisterComponent(nocComp)
	sys.Noc = nocComp

	buildMemCtrls(cfg, engine, simu, sys)

	memConns := make(map[string]*sim.DirectConnection, len(cfg.Mems))
	for _, mc := range cfg.Mems {
		conn := sim.NewDirectConnection(mc.Name + ".Conn")
		conn.PlugIn(sys.MemCtrl[mc.Name].GetPortByName(mc.Name + ".In"))
		conn.PlugIn(sys.MemCtrl[mc.Name].GetPortByName(mc.Name + ".Out"))
		memConns[mc.Name] = conn
	}

	dirNocIDs, lineBytes, err := buildDirs(cfg, builder, engine, simu, nocComp, memConns, sys)
	if err != nil {
		return nil, err
	}

	dirMapper := func(addr cachegeom.Addr) sim.RemotePort {
		idx := (uint64(addr) / uint64(lineBytes)) % uint64(len(dirNocIDs))

		return dirNocIDs[idx]
	}

	if err := buildClusters(cfg, builder, engine, simu, nocComp, dirMapper, ctx, sys); err != nil {
		return nil, err
	}

	sys.Sequencer = sim.NewSimSequencer(simu)

	return sys, nil
}

func buildMemCtrls(cfg *config.SocConfig, engine sim.Engine, simu *sim.Simulation, sys *System) {
	for _, mc := range cfg.Mems {
		m := memctrl.NewComp(mc.Name, engine, Freq, mc.QueueDepth, cyclesFor(mc.LatencyNs))
		simu.RegisterComponent(m)
		sys.MemCtrl[mc.Name] = m
	}
}

func buildDirs(
	cfg *config.SocConfig, builder protocol.Builder, engine sim.Engine,
	simu *sim.Simulation, nocComp *noc.Comp, memConns map[string]*sim.DirectConnection, sys *System,
) ([]sim.RemotePort, int, error) {
	dirNocIDs := make([]sim.RemotePort, 0, len(cfg.Dirs))
	lineBytes := cfg.Dirs[0].LLC.Geometry.LineBytesN

	for i, dirCfg := range cfg.Dirs {
		memCfg := cfg.Mems[i%len(cfg.Mems)]
		memDst := sim.RemotePort(memCfg.Name + ".In")

		nocID := sim.RemotePort(dirCfg.Name)
		nocIngress := sim.RemotePort(sim.BuildName(nocComp.Name(), string(nocID)))

		dirComp, llcComp := builder.CreateDir(
			dirCfg.Name, engine, Freq, dirCfg, cfg.Noc.CreditsPerClass, nocID, nocIngress, memDst,
		)
		simu.RegisterComponent(dirComp)
		simu.RegisterComponent(llcComp)
		sys.Dirs[dirCfg.Name] = dirComp
		sys.LLCs[dirCfg.Name] = llcComp

		llcName := dirCfg.Name + ".LLC"

		dirLLCConn := sim.NewDirectConnection(dirCfg.Name + ".DirLLCConn")
		dirLLCConn.PlugIn(dirComp.GetPortByName(dirCfg.Name + ".LlcCmdOut"))
		dirLLCConn.PlugIn(dirComp.GetPortByName(dirCfg.Name + ".LlcRspIn"))
		dirLLCConn.PlugIn(llcComp.GetPortByName(llcName + ".CmdIn"))
		dirLLCConn.PlugIn(llcComp.GetPortByName(llcName + ".RspOut"))

		memConn := memConns[memCfg.Name]
		memConn.PlugIn(llcComp.GetPortByName(llcName + ".MemOut"))
		memConn.PlugIn(llcComp.GetPortByName(llcName + ".MemIn"))

		nocPort := nocComp.AddEndpoint(nocID, cfg.Noc.IngressQueueDepth, dirComp.GetPortByName(dirCfg.Name+".NocIn"))
		dirNocConn := sim.NewDirectConnection(dirCfg.Name + ".NocConn")
		dirNocConn.PlugIn(dirComp.GetPortByName(dirCfg.Name + ".NocOut"))
		dirNocConn.PlugIn(nocPort)

		if cr, ok := dirComp.(creditReceiver); ok {
			nocComp.OnTransfer(nocID, cr.CreditBack)
		}

		dirNocIDs = append(dirNocIDs, nocID)
	}

	return dirNocIDs, lineBytes, nil
}

func buildClusters(
	cfg *config.SocConfig, builder protocol.Builder, engine sim.Engine,
	simu *sim.Simulation, nocComp *noc.Comp, dirMapper ccagent.DirMapper,
	ctx stimulus.Context, sys *System,
) error {
	for _, cl := range cfg.Clusters {
		ccName := cl.Name + ".CC"
		l2Name := cl.Name + ".L2"

		ccNocID := sim.RemotePort(ccName)
		ccNocIngress := sim.RemotePort(sim.BuildName(nocComp.Name(), string(ccNocID)))
		l2SnpDst := sim.RemotePort(l2Name + ".CcSnpIn")

		ccComp := builder.CreateCC(
			ccName, engine, Freq, cl.CC, cfg.Noc.CreditsPerClass, ccNocID, ccNocIngress, dirMapper, l2SnpDst,
		)
		simu.RegisterComponent(ccComp)
		sys.CCs[cl.Name] = ccComp

		ccDst := sim.RemotePort(ccName + ".L2CmdIn")
		l2Comp := builder.CreateL2(l2Name, engine, Freq, cl.L2, len(cl.L1s), ccDst)
		simu.RegisterComponent(l2Comp)
		sys.L2s[cl.Name] = l2Comp

		wireCCL2(cl, ccName, l2Name, ccComp, l2Comp)

		l2Dst := sim.RemotePort(l2Name + ".L1In")
		l1L2Conn := sim.NewDirectConnection(cl.Name + ".L1L2Conn")
		l1L2Conn.PlugIn(l2Comp.GetPortByName(l2Name + ".L1In"))
		l1L2Conn.PlugIn(l2Comp.GetPortByName(l2Name + ".L1Out"))

		if err := buildCPUsAndL1s(cl, builder, engine, ctx, l2Dst, l2Comp, l1L2Conn, simu, sys); err != nil {
			return err
		}

		ccNocPort := nocComp.AddEndpoint(ccNocID, cfg.Noc.IngressQueueDepth, ccComp.GetPortByName(ccName+".NocIn"))
		ccNocConn := sim.NewDirectConnection(ccName + ".NocConn")
		ccNocConn.PlugIn(ccComp.GetPortByName(ccName + ".NocOut"))
		ccNocConn.PlugIn(ccNocPort)

		if cr, ok := ccComp.(creditReceiver); ok {
			nocComp.OnTransfer(ccNocID, cr.CreditBack)
		}
	}

	return nil
}

// wireCCL2 plugs the four ACE port pairs a cluster's CC and L2 share
// into one DirectConnection: command, command-response, snoop and
// snoop-response.
func wireCCL2(cl config.CpuClusterConfig, ccName, l2Name string, ccComp, l2Comp sim.Component) {
	conn := sim.NewDirectConnection(cl.Name + ".CcL2Conn")

	conn.PlugIn(ccComp.GetPortByName(ccName + ".L2CmdIn"))
	conn.PlugIn(ccComp.GetPortByName(ccName + ".L2RspOut"))
	conn.PlugIn(ccComp.GetPortByName(ccName + ".L2SnpOut"))
	conn.PlugIn(ccComp.GetPortByName(ccName + ".L2SnpRspIn"))

	conn.PlugIn(l2Comp.GetPortByName(l2Name + ".CcCmdOut"))
	conn.PlugIn(l2Comp.GetPortByName(l2Name + ".CcRspIn"))
	conn.PlugIn(l2Comp.GetPortByName(l2Name + ".CcSnpIn"))
	conn.PlugIn(l2Comp.GetPortByName(l2Name + ".CcSnpOut"))
}

func buildCPUsAndL1s(
	cl config.CpuClusterConfig, builder protocol.Builder, engine sim.Engine,
	ctx stimulus.Context, l2Dst sim.RemotePort, l2Comp sim.Component,
	l1L2Conn *sim.DirectConnection, simu *sim.Simulation, sys *System,
) error {
	if len(cl.CPUs) != len(cl.L1s) {
		return fmt.Errorf("soc: cluster %s has %d cpus but %d l1 configs", cl.Name, len(cl.CPUs), len(cl.L1s))
	}

	for i, cpuCfg := range cl.CPUs {
		l1Cfg := cl.L1s[i]

		l1Name := sim.BuildName(cl.Name, fmt.Sprintf("L1_%d", cpuCfg.ID))
		cpuName := sim.BuildName(cl.Name, fmt.Sprintf("CPU_%d", cpuCfg.ID))
		l1Dst := sim.RemotePort(l1Name + ".CpuIn")

		var onEvictDirty func(cachegeom.Addr)
		if dn, ok := l2Comp.(dirtyNotifier); ok {
			onEvictDirty = dn.NoteL1DirtyEvict
		}

		l1Comp := builder.CreateL1(l1Name, engine, Freq, l1Cfg, l2Dst, onEvictDirty)
		simu.RegisterComponent(l1Comp)
		sys.L1s[l1Name] = l1Comp

		if reg, ok := l2Comp.(l1Registrar); ok {
			if bd, ok := l1Comp.(l2agent.L1BackDoor); ok {
				reg.RegisterL1(sim.RemotePort(l1Name+".L2In"), bd)
			}
		}

		l1L2Conn.PlugIn(l1Comp.GetPortByName(l1Name + ".L2Out"))
		l1L2Conn.PlugIn(l1Comp.GetPortByName(l1Name + ".L2In"))

		cpuComp := cpuagent.NewComp(cpuName, engine, Freq, cpuCfg.ID, ctx, l1Cfg.QueueDepth, l1Dst)
		simu.RegisterComponent(cpuComp)
		sys.CPUs[cpuName] = cpuComp

		cpuL1Conn := sim.NewDirectConnection(l1Name + ".CpuConn")
		cpuL1Conn.PlugIn(cpuComp.L1Out())
		cpuL1Conn.PlugIn(cpuComp.L1In())
		cpuL1Conn.PlugIn(l1Comp.GetPortByName(l1Name + ".CpuIn"))
		cpuL1Conn.PlugIn(l1Comp.GetPortByName(l1Name + ".CpuOut"))
	}

	return nil
}
