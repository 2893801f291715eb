package diragent

import (
	"log"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

type llcLine struct {
	Addr cachegeom.Addr
}

type llcPending struct {
	cmd *coh.LLCCmd
}

// LLC is the last-level cache co-located with one directory: a pure
// hit/miss tag array with no functional data (§1 non-goals). A Fill that
// hits its tag array answers the directory immediately; a miss goes to
// main memory first. Evict always writes through to memory regardless of
// tag-array residency; PutLine installs a tag with no memory traffic at
// all, used when the directory already obtained the line's data some
// other way (a snoop response) and just wants it cached for later reads.
type LLC struct {
	*sim.TickingComponent

	geom cachegeom.Geometry
	tags *cachegeom.TagStore[llcLine]

	memDst sim.RemotePort

	pending map[string]llcPending // MemCmd id -> the LLCCmd awaiting it

	cmdIn  sim.Port
	rspOut sim.Port
	memOut sim.Port
	memIn  sim.Port
}

// NewLLC creates the LLC sub-agent. memDst names the memory controller's
// command-facing ingress.
func NewLLC(name string, engine sim.Engine, freq sim.Freq, geom cachegeom.Geometry, queueDepth int, memDst sim.RemotePort) *LLC {
	l := &LLC{
		geom:    geom,
		tags:    cachegeom.NewTagStore[llcLine](geom),
		memDst:  memDst,
		pending: make(map[string]llcPending),
	}
	l.TickingComponent = sim.NewTickingComponent(name, engine, freq, l)

	l.cmdIn = sim.NewPort(l, queueDepth, queueDepth, name+".CmdIn")
	l.rspOut = sim.NewPort(l, queueDepth, queueDepth, name+".RspOut")
	l.memOut = sim.NewPort(l, queueDepth, queueDepth, name+".MemOut")
	l.memIn = sim.NewPort(l, queueDepth, queueDepth, name+".MemIn")

	for _, p := range []sim.Port{l.cmdIn, l.rspOut, l.memOut, l.memIn} {
		l.AddPort(p.Name(), p)
	}

	return l
}

// CmdIn returns the directory-facing command ingress.
func (l *LLC) CmdIn() sim.Port { return l.cmdIn }

// RspOut returns the directory-facing response egress.
func (l *LLC) RspOut() sim.Port { return l.rspOut }

// MemOut returns the memory-facing command egress.
func (l *LLC) MemOut() sim.Port { return l.memOut }

// MemIn returns the memory-facing response ingress.
func (l *LLC) MemIn() sim.Port { return l.memIn }

// Resident reports whether addr's line is tagged present, for tests and
// monitor sinks.
func (l *LLC) Resident(addr cachegeom.Addr) bool {
	_, ok := l.tags.Lookup(l.geom.LineAddr(addr))

	return ok
}

func (l *LLC) Tick() bool {
	if l.handleMemRsp() {
		return true
	}

	return l.handleCmd()
}

func (l *LLC) handleCmd() bool {
	msg := l.cmdIn.PeekIncoming()
	if msg == nil {
		return false
	}

	cmd, ok := msg.(*coh.LLCCmd)
	if !ok {
		log.Panicf("diragent: %s received unexpected message %T", l.Name(), msg)
	}

	line := l.geom.LineAddr(cmd.Addr)

	switch cmd.Opcode {
	case coh.LLCFill:
		if _, hit := l.tags.Lookup(line); hit {
			return l.respondOkay(cmd)
		}

		return l.issueMem(cmd, coh.MemRead)
	case coh.LLCPutLine:
		list := coh.CmdList{
			Resources: coh.Resources{Ports: []sim.Port{l.rspOut}},
			Exec: func() {
				l.cmdIn.RetrieveIncoming()
				l.tags.Install(line, llcLine{Addr: line})
				l.sendRsp(cmd, coh.LLCOkay)
			},
		}

		return coh.Run(list) == nil
	case coh.LLCEvict:
		return l.issueMem(cmd, coh.MemWrite)
	default:
		log.Panicf("diragent: %s received LLCCmd with unknown opcode %v", l.Name(), cmd.Opcode)

		return false
	}
}

func (l *LLC) issueMem(cmd *coh.LLCCmd, op coh.MemOp) bool {
	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{l.memOut}},
		Exec: func() {
			l.cmdIn.RetrieveIncoming()

			mem := &coh.MemCmd{Opcode: op, Addr: cmd.Addr, RspDst: l.memIn.AsRemote()}
			mem.MsgMeta.ID = sim.GetIDGenerator().Generate()
			mem.MsgMeta.Src = l.memOut.AsRemote()
			mem.MsgMeta.Dst = l.memDst
			mem.Class = coh.ClassMemCmd
			mem.Txn = cmd.Txn

			l.pending[mem.Meta().ID] = llcPending{cmd: cmd}

			if err := l.memOut.Send(mem); err != nil {
				log.Panicf("diragent: %s resource check passed but send failed: %v", l.Name(), err)
			}
		},
	}

	return coh.Run(list) == nil
}

func (l *LLC) respondOkay(cmd *coh.LLCCmd) bool {
	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{l.rspOut}},
		Exec: func() {
			l.cmdIn.RetrieveIncoming()
			l.sendRsp(cmd, coh.LLCOkay)
		},
	}

	return coh.Run(list) == nil
}

func (l *LLC) handleMemRsp() bool {
	msg := l.memIn.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*coh.MemRsp)
	if !ok {
		log.Panicf("diragent: %s received unexpected message %T", l.Name(), msg)
	}

	entry, found := l.pending[rsp.RspTo]
	if !found {
		log.Panicf("diragent: %s received MemRsp for unknown request %s", l.Name(), rsp.RspTo)
	}

	line := l.geom.LineAddr(entry.cmd.Addr)

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{l.rspOut}},
		Exec: func() {
			l.memIn.RetrieveIncoming()
			delete(l.pending, rsp.RspTo)

			if entry.cmd.Opcode == coh.LLCFill {
				l.tags.Install(line, llcLine{Addr: line})
			} else {
				l.tags.Remove(line)
			}

			l.sendRsp(entry.cmd, coh.LLCOkay)
		},
	}

	return coh.Run(list) == nil
}

func (l *LLC) sendRsp(cmd *coh.LLCCmd, status coh.LLCStatus) {
	dst := cmd.RspDst
	if dst == "" {
		dst = cmd.Meta().Src
	}

	rsp := &coh.LLCRsp{Opcode: cmd.Opcode, Status: status, RspTo: cmd.Meta().ID}
	rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	rsp.MsgMeta.Src = l.rspOut.AsRemote()
	rsp.MsgMeta.Dst = dst
	rsp.Class = coh.ClassLLCRsp
	rsp.Txn = cmd.Txn

	if err := l.rspOut.Send(rsp); err != nil {
		log.Panicf("diragent: %s resource check passed but send failed: %v", l.Name(), err)
	}
}
