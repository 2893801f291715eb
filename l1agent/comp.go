// Package l1agent implements the private per-CPU L1: §4.4's MOESI-L1
// state machine, sitting between one cpuagent.Comp and the cluster's
// shared l2agent.Comp.
package l1agent

import (
	"log"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/primitives"
	"github.com/archsim/cohmesh/sim"
)

// Comp is one L1 cache.
type Comp struct {
	*sim.TickingComponent

	geom cachegeom.Geometry
	tags *cachegeom.TagStore[LineMeta]

	replay *primitives.Queue[*coh.CpuL1Cmd]

	cpuIn  sim.Port // CPU -> L1 request
	cpuOut sim.Port // L1 -> CPU response
	l2Out  sim.Port // L1 -> L2 request
	l2In   sim.Port // L2 -> L1 response

	l2Dst sim.RemotePort

	// onEvictDirty is the back-door notification a capacity eviction
	// makes to L2 when the victim line was Modified: L1 never carries
	// dirty data L2 doesn't already know about, per the write-through
	// invariant, so folding it in is a direct call rather than a
	// message (§4.4's "L1 evict" resolution).
	onEvictDirty func(addr cachegeom.Addr)

	arbiter *primitives.Arbiter
}

// NewComp creates an L1 of the given geometry. l2Dst names the request-
// facing ingress port L2 dedicates to this L1; onEvictDirty is called
// synchronously whenever a capacity-evicted line was Modified.
func NewComp(
	name string, engine sim.Engine, freq sim.Freq,
	geom cachegeom.Geometry, queueDepth int,
	l2Dst sim.RemotePort, onEvictDirty func(cachegeom.Addr),
) *Comp {
	c := &Comp{
		geom:         geom,
		tags:         cachegeom.NewTagStore[LineMeta](geom),
		replay:       primitives.NewQueue[*coh.CpuL1Cmd](name+".Replay", queueDepth),
		l2Dst:        l2Dst,
		onEvictDirty: onEvictDirty,
		arbiter:      primitives.NewArbiter(name + ".Arbiter"),
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	c.cpuIn = sim.NewPort(c, queueDepth, queueDepth, name+".CpuIn")
	c.cpuOut = sim.NewPort(c, queueDepth, queueDepth, name+".CpuOut")
	c.l2Out = sim.NewPort(c, queueDepth, queueDepth, name+".L2Out")
	c.l2In = sim.NewPort(c, queueDepth, queueDepth, name+".L2In")
	c.AddPort(c.cpuIn.Name(), c.cpuIn)
	c.AddPort(c.cpuOut.Name(), c.cpuOut)
	c.AddPort(c.l2Out.Name(), c.l2Out)
	c.AddPort(c.l2In.Name(), c.l2In)

	c.replay.OnNonEmpty(c.TickLater)

	return c
}

// CpuIn returns the request-facing ingress port from the owning CPU.
func (c *Comp) CpuIn() sim.Port { return c.cpuIn }

// CpuOut returns the response-facing egress port to the owning CPU.
func (c *Comp) CpuOut() sim.Port { return c.cpuOut }

// L2Out returns the request-facing egress port to L2.
func (c *Comp) L2Out() sim.Port { return c.l2Out }

// L2In returns the response-facing ingress port from L2.
func (c *Comp) L2In() sim.Port { return c.l2In }

// Lookup exposes the current state of a line, for tests and monitor
// sinks.
func (c *Comp) Lookup(addr cachegeom.Addr) (State, bool) {
	meta, ok := c.tags.Lookup(c.geom.LineAddr(addr))

	return meta.State, ok
}

// BackDoorDemote is L2's direct call to downgrade or invalidate a line
// this L1 holds, bypassing the message system entirely (§4.4's
// "L2 demote (back-door)" row). It reports whether the demoted line was
// Modified, so L2 can fold dirty status into its own metadata without a
// round trip.
func (c *Comp) BackDoorDemote(addr cachegeom.Addr, toShared bool) (wasDirty bool) {
	line := c.geom.LineAddr(addr)

	meta, present := c.tags.Lookup(line)
	if !present {
		return false
	}

	wasDirty = meta.State == M

	if toShared {
		c.tags.Update(line, func(m *LineMeta) { m.State = S })

		return wasDirty
	}

	c.tags.Remove(line)
	c.InvokeHook(sim.HookCtx{Domain: c, Pos: coh.HookPosInvalidateLine, Item: addr})

	return wasDirty
}

func (c *Comp) l2RspBlocked() bool {
	if c.l2In.PeekIncoming() == nil {
		return false
	}

	return coh.Resources{Ports: []sim.Port{c.cpuOut}}.Check() != nil
}

func (c *Comp) replayHeadReady() bool {
	req, ok := c.replay.Peek()
	if !ok {
		return false
	}

	meta, present := c.tags.Lookup(c.geom.LineAddr(req.Addr))

	return !present || !meta.State.Transient()
}

func (c *Comp) cpuHeadBlocked() bool {
	msg := c.cpuIn.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(*coh.CpuL1Cmd)
	if !ok {
		return false
	}

	line := c.geom.LineAddr(req.Addr)

	meta, present := c.tags.Lookup(line)
	if present && meta.State.Transient() {
		return c.replay.Full()
	}

	if !present {
		return coh.Resources{Ports: []sim.Port{c.l2Out}}.Check() != nil
	}

	if req.Opcode == coh.Load {
		return coh.Resources{Ports: []sim.Port{c.cpuOut}}.Check() != nil
	}

	switch meta.State {
	case M:
		return coh.Resources{Ports: []sim.Port{c.cpuOut}}.Check() != nil
	case E, S:
		return coh.Resources{Ports: []sim.Port{c.l2Out}}.Check() != nil
	default:
		return false
	}
}

// Tick arbitrates round-robin (§5) across an arrived L2 response (it
// clears a transient state and may unblock replay), the head of the
// replay queue, and the head of the CPU-facing ingress queue — each
// Blocked() when its next send's actual resource check would fail.
func (c *Comp) Tick() bool {
	sources := []struct {
		req primitives.FuncRequester
		run func() bool
	}{
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.l2In.PeekIncoming() != nil },
				BlockedFunc: c.l2RspBlocked,
			},
			c.handleL2Rsp,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  c.replayHeadReady,
				BlockedFunc: func() bool { return false },
			},
			c.handleReplayHead,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.cpuIn.PeekIncoming() != nil },
				BlockedFunc: c.cpuHeadBlocked,
			},
			c.handleCpuHead,
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

func (c *Comp) handleL2Rsp() bool {
	msg := c.l2In.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*coh.L2L1Rsp)
	if !ok {
		log.Panicf("l1agent: %s received unexpected message %T", c.Name(), msg)
	}

	txn := rsp.Transaction()
	if txn == nil {
		log.Panicf("l1agent: %s received L2L1Rsp with no transaction", c.Name())
	}

	line := c.geom.LineAddr(txn.Addr())

	meta, present := c.tags.Lookup(line)
	if !present {
		log.Panicf("l1agent: %s received L2L1Rsp for absent line %#x", c.Name(), line)
	}

	var next State

	switch meta.State {
	case IS:
		if rsp.IsShared {
			next = S
		} else {
			next = E
		}
	case IE, EM:
		next = M
	default:
		log.Panicf("l1agent: %s received L2L1Rsp while line %#x in state %v", c.Name(), line, meta.State)
	}

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.cpuOut}},
		Exec: func() {
			c.l2In.RetrieveIncoming()

			req := meta.PendingReq
			c.tags.Update(line, func(m *LineMeta) {
				m.State = next
				m.Txn = nil
				m.PendingReq = nil
			})
			c.respond(req)
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) handleReplayHead() bool {
	req, ok := c.replay.Peek()
	if !ok {
		return false
	}

	line := c.geom.LineAddr(req.Addr)
	if meta, present := c.tags.Lookup(line); present && meta.State.Transient() {
		return false
	}

	return c.dispatch(req, true)
}

func (c *Comp) handleCpuHead() bool {
	msg := c.cpuIn.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(*coh.CpuL1Cmd)
	if !ok {
		log.Panicf("l1agent: %s received unexpected message %T", c.Name(), msg)
	}

	line := c.geom.LineAddr(req.Addr)
	if meta, present := c.tags.Lookup(line); present && meta.State.Transient() {
		if c.replay.Full() {
			return false
		}

		c.cpuIn.RetrieveIncoming()

		if err := c.replay.Enqueue(req); err != nil {
			log.Panicf("l1agent: %s replay queue full: %v", c.Name(), err)
		}

		return true
	}

	return c.dispatch(req, false)
}

// dispatch processes req, which is known not to target a currently
// transient line. fromReplay indicates the message must be retrieved
// from the replay queue's own bookkeeping rather than cpuIn (the
// caller has already dequeued it in that case).
func (c *Comp) dispatch(req *coh.CpuL1Cmd, fromReplay bool) bool {
	line := c.geom.LineAddr(req.Addr)

	meta, present := c.tags.Lookup(line)
	if !present {
		return c.miss(req, line, fromReplay)
	}

	return c.hit(req, line, meta, fromReplay)
}

func (c *Comp) hit(req *coh.CpuL1Cmd, line cachegeom.Addr, meta LineMeta, fromReplay bool) bool {
	if req.Opcode == coh.Load {
		list := coh.CmdList{
			Resources: coh.Resources{Ports: []sim.Port{c.cpuOut}},
			Exec: func() {
				c.consume(req, fromReplay)
				c.respond(req)
				c.InvokeHook(sim.HookCtx{Domain: c, Pos: coh.HookPosLoadHit, Item: req.Addr})
			},
		}

		return coh.Run(list) == nil
	}

	switch meta.State {
	case M:
		list := coh.CmdList{
			Resources: coh.Resources{Ports: []sim.Port{c.cpuOut}},
			Exec: func() {
				c.consume(req, fromReplay)
				c.respond(req)
				c.InvokeHook(sim.HookCtx{Domain: c, Pos: coh.HookPosStoreHit, Item: req.Addr})
			},
		}

		return coh.Run(list) == nil

	case E:
		return c.upgrade(req, line, EM, fromReplay)

	case S:
		return c.upgrade(req, line, IE, fromReplay)

	default:
		log.Panicf("l1agent: %s CpuStore hit on line %#x in state %v", c.Name(), line, meta.State)

		return false
	}
}

// upgrade sends an L1GetE to L2 and parks the line in a transient
// state (EM for a store-hit poke at E, IE for a share-to-exclusive
// upgrade at S) until the response arrives.
func (c *Comp) upgrade(req *coh.CpuL1Cmd, line cachegeom.Addr, next State, fromReplay bool) bool {
	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.l2Out}},
		Exec: func() {
			c.consume(req, fromReplay)
			c.tags.Update(line, func(m *LineMeta) {
				m.State = next
				m.Txn = req.Txn
				m.PendingReq = req
			})
			c.sendL2Cmd(coh.L1GetE, line, req.Txn)
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) miss(req *coh.CpuL1Cmd, line cachegeom.Addr, fromReplay bool) bool {
	op, next := coh.L1GetS, IS
	if req.Opcode == coh.Store {
		op, next = coh.L1GetE, IE
	}

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.l2Out}},
		Exec: func() {
			c.consume(req, fromReplay)

			victim, evicted := c.tags.Install(line, LineMeta{
				Addr: line, State: next, Txn: req.Txn, PendingReq: req,
			})
			if evicted {
				c.evict(victim)
			}

			c.sendL2Cmd(op, line, req.Txn)

			pos := coh.HookPosLoadMiss
			if req.Opcode == coh.Store {
				pos = coh.HookPosStoreMiss
			}

			c.InvokeHook(sim.HookCtx{Domain: c, Pos: pos, Item: req.Addr})
		},
	}

	return coh.Run(list) == nil
}

// evict folds a capacity victim into L2 via the back-door path
// (Supplemented feature 1): no NOC traffic, just a local state
// transition to I and, if the victim was dirty, a synchronous notify.
func (c *Comp) evict(victim LineMeta) {
	if victim.State.Transient() {
		log.Panicf("l1agent: %s evicted a transient line %#x in state %v", c.Name(), victim.Addr, victim.State)
	}

	if victim.State == M && c.onEvictDirty != nil {
		c.onEvictDirty(victim.Addr)
	}

	c.InvokeHook(sim.HookCtx{Domain: c, Pos: coh.HookPosInvalidateLine, Item: victim.Addr})
}

func (c *Comp) consume(req *coh.CpuL1Cmd, fromReplay bool) {
	if fromReplay {
		c.replay.Dequeue()

		return
	}

	c.cpuIn.RetrieveIncoming()
}

func (c *Comp) sendL2Cmd(op coh.L1L2Op, addr cachegeom.Addr, txn *coh.Transaction) {
	cmd := &coh.L1L2Cmd{Opcode: op, Addr: addr, L1: c.l2In.AsRemote()}
	cmd.MsgMeta.ID = sim.GetIDGenerator().Generate()
	cmd.MsgMeta.Src = c.l2Out.AsRemote()
	cmd.MsgMeta.Dst = c.l2Dst
	cmd.Class = coh.ClassL1L2Cmd
	cmd.Txn = txn

	if err := c.l2Out.Send(cmd); err != nil {
		log.Panicf("l1agent: %s resource check passed but send failed: %v", c.Name(), err)
	}
}

func (c *Comp) respond(req *coh.CpuL1Cmd) {
	dst := req.RspDst
	if dst == "" {
		dst = req.Meta().Src
	}

	rsp := &coh.L1CpuRsp{RspTo: req.Meta().ID}
	rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
	rsp.MsgMeta.Src = c.cpuOut.AsRemote()
	rsp.MsgMeta.Dst = dst
	rsp.Class = coh.ClassL1CpuRsp
	rsp.Txn = req.Txn

	if err := c.cpuOut.Send(rsp); err != nil {
		log.Panicf("l1agent: %s resource check passed but send failed: %v", c.Name(), err)
	}
}
