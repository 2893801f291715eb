// Package l2agent implements the cluster-shared L2: §4.5's MOESI-L2 ACE
// master, sitting between the cluster's l1agent.Comp children and its
// ccagent.Comp.
package l2agent

import (
	"log"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/primitives"
	"github.com/archsim/cohmesh/sim"
)

// L1BackDoor is the demotion surface a registered L1 exposes to its L2 —
// satisfied by *l1agent.Comp. Keeping this as an interface, rather than
// importing l1agent's concrete type, lets a Builder hand back a bare
// sim.Component from CreateL1 and still register it here.
type L1BackDoor interface {
	BackDoorDemote(addr cachegeom.Addr, toShared bool) (wasDirty bool)
}

// Comp is the cluster's shared L2.
type Comp struct {
	*sim.TickingComponent

	geom cachegeom.Geometry
	tags *cachegeom.TagStore[LineMeta]

	l1s map[sim.RemotePort]L1BackDoor

	l1In  sim.Port // L1s -> L2 request (shared ingress)
	l1Out sim.Port // L2 -> L1s response (routed by Dst)

	ccCmdOut sim.Port // L2 -> CC ACE command
	ccRspIn  sim.Port // CC -> L2 ACE command response
	ccSnpIn  sim.Port // CC -> L2 ACE snoop
	ccSnpOut sim.Port // L2 -> CC ACE snoop response

	ccDst sim.RemotePort

	arbiter *primitives.Arbiter
}

// NewComp creates an L2 of the given geometry. ccDst names the CC's ACE
// command-facing ingress port.
func NewComp(
	name string, engine sim.Engine, freq sim.Freq,
	geom cachegeom.Geometry, queueDepth int, ccDst sim.RemotePort,
) *Comp {
	c := &Comp{
		geom:    geom,
		tags:    cachegeom.NewTagStore[LineMeta](geom),
		l1s:     make(map[sim.RemotePort]L1BackDoor),
		ccDst:   ccDst,
		arbiter: primitives.NewArbiter(name + ".Arbiter"),
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	c.l1In = sim.NewPort(c, queueDepth, queueDepth, name+".L1In")
	c.l1Out = sim.NewPort(c, queueDepth, queueDepth, name+".L1Out")
	c.ccCmdOut = sim.NewPort(c, queueDepth, queueDepth, name+".CcCmdOut")
	c.ccRspIn = sim.NewPort(c, queueDepth, queueDepth, name+".CcRspIn")
	c.ccSnpIn = sim.NewPort(c, queueDepth, queueDepth, name+".CcSnpIn")
	c.ccSnpOut = sim.NewPort(c, queueDepth, queueDepth, name+".CcSnpOut")

	for _, p := range []sim.Port{c.l1In, c.l1Out, c.ccCmdOut, c.ccRspIn, c.ccSnpIn, c.ccSnpOut} {
		c.AddPort(p.Name(), p)
	}

	return c
}

// L1In returns the shared request-facing ingress from the cluster's L1s.
func (c *Comp) L1In() sim.Port { return c.l1In }

// L1Out returns the shared response-facing egress to the cluster's L1s.
func (c *Comp) L1Out() sim.Port { return c.l1Out }

// CcCmdOut returns the ACE command-facing egress to CC.
func (c *Comp) CcCmdOut() sim.Port { return c.ccCmdOut }

// CcRspIn returns the ACE command-response ingress from CC.
func (c *Comp) CcRspIn() sim.Port { return c.ccRspIn }

// CcSnpIn returns the ACE snoop ingress from CC.
func (c *Comp) CcSnpIn() sim.Port { return c.ccSnpIn }

// CcSnpOut returns the ACE snoop-response egress to CC.
func (c *Comp) CcSnpOut() sim.Port { return c.ccSnpOut }

// RegisterL1 records the handle L2 uses to back-door demote or
// invalidate one of the cluster's L1s. key is the L1's L2In port
// identity, the same value its L1L2Cmd.L1 field carries.
func (c *Comp) RegisterL1(key sim.RemotePort, l1 L1BackDoor) {
	c.l1s[key] = l1
}

// NoteL1DirtyEvict is the back-door notification an L1's capacity
// eviction of a Modified line delivers to its L2 (the l1agent.onEvictDirty
// callback's target), keeping the shared dirty-ownership bit correct with
// no message round trip.
func (c *Comp) NoteL1DirtyEvict(addr cachegeom.Addr) {
	line := c.geom.LineAddr(addr)
	c.tags.Update(line, func(m *LineMeta) { m.OwnerDirty = true })
}

// Lookup exposes the current state of a line, for tests and monitor
// sinks.
func (c *Comp) Lookup(addr cachegeom.Addr) (State, bool) {
	meta, ok := c.tags.Lookup(c.geom.LineAddr(addr))

	return meta.State, ok
}

func (c *Comp) snoopBlocked() bool {
	if c.ccSnpIn.PeekIncoming() == nil {
		return false
	}

	return coh.Resources{Ports: []sim.Port{c.ccSnpOut}}.Check() != nil
}

func (c *Comp) ccRspBlocked() bool {
	if c.ccRspIn.PeekIncoming() == nil {
		return false
	}

	return coh.Resources{Ports: []sim.Port{c.l1Out}}.Check() != nil
}

func (c *Comp) l1CmdBlocked() bool {
	msg := c.l1In.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(*coh.L1L2Cmd)
	if !ok {
		return false
	}

	line := c.geom.LineAddr(req.Addr)

	meta, present := c.tags.Lookup(line)
	if !present {
		return coh.Resources{Ports: []sim.Port{c.ccCmdOut}}.Check() != nil
	}

	if meta.State.Transient() {
		return true
	}

	if req.Opcode == coh.L1GetS {
		return coh.Resources{Ports: []sim.Port{c.l1Out}}.Check() != nil
	}

	sole := len(meta.Sharers) == 1 && meta.Sharers[req.L1]
	if sole {
		return coh.Resources{Ports: []sim.Port{c.l1Out}}.Check() != nil
	}

	return coh.Resources{Ports: []sim.Port{c.ccCmdOut}}.Check() != nil
}

// Tick arbitrates round-robin (§5) across a CC snoop, a CC command
// response (clears a transient state), and the head of the L1-facing
// ingress queue — each Blocked() when its next send's actual resource
// check would fail, or, for the L1 command source, when its line is
// still transient.
func (c *Comp) Tick() bool {
	sources := []struct {
		req primitives.FuncRequester
		run func() bool
	}{
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.ccSnpIn.PeekIncoming() != nil },
				BlockedFunc: c.snoopBlocked,
			},
			c.handleSnoop,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.ccRspIn.PeekIncoming() != nil },
				BlockedFunc: c.ccRspBlocked,
			},
			c.handleCcRsp,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.l1In.PeekIncoming() != nil },
				BlockedFunc: c.l1CmdBlocked,
			},
			c.handleL1Cmd,
		},
	}

	requesters := make([]primitives.Requester, len(sources))
	for i := range sources {
		requesters[i] = sources[i].req
	}

	idx, err := c.arbiter.Tournament(requesters)
	if err != nil {
		log.Panicf("%v", err)
	}

	if idx < 0 {
		return false
	}

	return sources[idx].run()
}

func (c *Comp) handleCcRsp() bool {
	msg := c.ccRspIn.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*coh.CCL2AceRsp)
	if !ok {
		log.Panicf("l2agent: %s received unexpected message %T", c.Name(), msg)
	}

	txn := rsp.Transaction()
	if txn == nil {
		log.Panicf("l2agent: %s received CCL2AceRsp with no transaction", c.Name())
	}

	line := c.geom.LineAddr(txn.Addr())

	meta, present := c.tags.Lookup(line)
	if !present {
		log.Panicf("l2agent: %s received CCL2AceRsp for absent line %#x", c.Name(), line)
	}

	var next State

	switch meta.State {
	case IS:
		switch {
		case rsp.PassDirty:
			next = O
		case rsp.IsShared:
			next = S
		default:
			next = E
		}
	case IE, OE:
		next = M
	default:
		log.Panicf("l2agent: %s received CCL2AceRsp while line %#x in state %v", c.Name(), line, meta.State)
	}

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.l1Out}},
		Exec: func() {
			c.ccRspIn.RetrieveIncoming()

			req := meta.PendingReq
			dirty := next == M || next == O

			c.tags.Update(line, func(m *LineMeta) {
				m.State = next
				m.Txn = nil
				m.PendingReq = nil
				m.OwnerDirty = dirty
				m.Sharers = map[sim.RemotePort]bool{req.L1: true}
			})

			c.respondL1(req, next == S || next == O)
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) handleL1Cmd() bool {
	msg := c.l1In.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(*coh.L1L2Cmd)
	if !ok {
		log.Panicf("l2agent: %s received unexpected message %T", c.Name(), msg)
	}

	line := c.geom.LineAddr(req.Addr)

	meta, present := c.tags.Lookup(line)
	if !present {
		return c.miss(req, line)
	}

	if meta.State.Transient() {
		return false
	}

	if req.Opcode == coh.L1GetS {
		return c.shareHit(req, line, meta)
	}

	return c.exclusiveHit(req, line, meta)
}

func (c *Comp) miss(req *coh.L1L2Cmd, line cachegeom.Addr) bool {
	op, next := coh.ReadShared, IS
	if req.Opcode == coh.L1GetE {
		op, next = coh.ReadUnique, IE
	}

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.ccCmdOut}},
		Exec: func() {
			c.l1In.RetrieveIncoming()
			c.tags.Install(line, LineMeta{
				Addr: line, State: next, Txn: req.Txn, PendingReq: req,
			})
			c.sendCcCmd(op, line, req.Txn)
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) shareHit(req *coh.L1L2Cmd, line cachegeom.Addr, meta LineMeta) bool {
	if meta.Sharers[req.L1] {
		list := coh.CmdList{
			Resources: coh.Resources{Ports: []sim.Port{c.l1Out}},
			Exec: func() {
				c.l1In.RetrieveIncoming()
				c.respondL1(req, meta.State == S || meta.State == O)
			},
		}

		return coh.Run(list) == nil
	}

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.l1Out}},
		Exec: func() {
			c.l1In.RetrieveIncoming()

			next := meta.State
			if next == E || next == M {
				c.demoteSharers(meta, true)
				next = S
			}

			c.tags.Update(line, func(m *LineMeta) {
				m.State = next
				m.Sharers[req.L1] = true
			})

			c.respondL1(req, true)
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) exclusiveHit(req *coh.L1L2Cmd, line cachegeom.Addr, meta LineMeta) bool {
	sole := len(meta.Sharers) == 1 && meta.Sharers[req.L1]

	if sole {
		list := coh.CmdList{
			Resources: coh.Resources{Ports: []sim.Port{c.l1Out}},
			Exec: func() {
				c.l1In.RetrieveIncoming()
				c.tags.Update(line, func(m *LineMeta) {
					m.State = M
					m.OwnerDirty = true
				})
				c.respondL1(req, false)
			},
		}

		return coh.Run(list) == nil
	}

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.ccCmdOut}},
		Exec: func() {
			c.l1In.RetrieveIncoming()
			c.demoteSharers(meta, false)
			c.tags.Update(line, func(m *LineMeta) {
				m.State = OE
				m.Txn = req.Txn
				m.PendingReq = req
				m.Sharers = map[sim.RemotePort]bool{req.L1: true}
			})
			c.sendCcCmd(coh.CleanUnique, line, req.Txn)
		},
	}

	return coh.Run(list) == nil
}

// demoteSharers back-doors every current sharer: toShared == false
// invalidates every sharer, toShared == true downgrades every sharer to
// shared (used when adding a new sharer to a previously exclusive line).
func (c *Comp) demoteSharers(meta LineMeta, toShared bool) {
	for port := range meta.Sharers {
		if l1, ok := c.l1s[port]; ok {
			l1.BackDoorDemote(meta.Addr, toShared)
		}
	}
}

func (c *Comp) handleSnoop() bool {
	msg := c.ccSnpIn.PeekIncoming()
	if msg == nil {
		return false
	}

	snp, ok := msg.(*coh.CCL2AceSnp)
	if !ok {
		log.Panicf("l2agent: %s received unexpected message %T", c.Name(), msg)
	}

	line := c.geom.LineAddr(snp.Addr)

	meta, present := c.tags.Lookup(line)
	wasUnique := present && (meta.State == E || meta.State == M || meta.State == O || meta.State == OE)

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.ccSnpOut}},
		Exec: func() {
			c.ccSnpIn.RetrieveIncoming()

			if !present {
				c.respondSnoop(snp, false, false, true, false)

				return
			}

			dirty := meta.OwnerDirty

			if snp.Opcode == coh.SnpReadShared {
				if meta.State == E || meta.State == M {
					c.demoteSharers(meta, true)
					next := S
					if dirty {
						next = O
					}
					c.tags.Update(line, func(m *LineMeta) { m.State = next })
				}

				c.respondSnoop(snp, true, dirty, true, wasUnique)

				return
			}

			c.demoteSharers(meta, false)
			c.tags.Remove(line)
			c.respondSnoop(snp, true, dirty, false, wasUnique)
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) sendCcCmd(op coh.AceOp, addr cachegeom.Addr, txn *coh.Transaction) {
	cmd := &coh.L2CCAceCmd{Opcode: op, Addr: addr, RspDst: c.ccRspIn.AsRemote()}
	cmd.MsgMeta.ID = sim.GetIDGenerator().Generate()
	cmd.MsgMeta.Src = c.ccCmdOut.AsRemote()
	cmd.MsgMeta.Dst = c.ccDst
	cmd.Class = coh.ClassL2CCAceCmd
	cmd.Txn = txn

	if err := c.ccCmdOut.Send(cmd); err != nil {
		log.Panicf("l2agent: %s resource check passed but send failed: %v", c.Name(), err)
	}
}

func (c *Comp) respondL1(req *coh.L1L2Cmd, isShared bool) {
	rsp := &coh.L2L1Rsp{IsShared: isShared, RspTo: req.Meta().ID}
	rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	rsp.MsgMeta.Src = c.l1Out.AsRemote()
	rsp.MsgMeta.Dst = req.L1
	rsp.Class = coh.ClassL2L1Rsp
	rsp.Txn = req.Txn

	if err := c.l1Out.Send(rsp); err != nil {
		log.Panicf("l2agent: %s resource check passed but send failed: %v", c.Name(), err)
	}
}

func (c *Comp) respondSnoop(snp *coh.CCL2AceSnp, dt, pd, isShared, wasUnique bool) {
	dst := snp.RspDst
	if dst == "" {
		dst = snp.Meta().Src
	}

	rsp := &coh.L2CCAceSnpRsp{Dt: dt, Pd: pd, IsShared: isShared, WasUnique: wasUnique, RspTo: snp.Meta().ID}
	rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	rsp.MsgMeta.Src = c.ccSnpOut.AsRemote()
	rsp.MsgMeta.Dst = dst
	rsp.Class = coh.ClassL2CCAceSnpRsp
	rsp.Txn = snp.Txn

	if err := c.ccSnpOut.Send(rsp); err != nil {
		log.Panicf("l2agent: %s resource check passed but send failed: %v", c.Name(), err)
	}
}
