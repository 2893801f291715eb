// Package cpuagent implements the stimulus-driven CPU: §4.3's producer
// of CpuL1Cmd messages and sink for L1CpuRsp completions.
package cpuagent

import (
	"log"

	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
	"github.com/archsim/cohmesh/stimulus"
)

// Comp is one CPU.
type Comp struct {
	*sim.TickingComponent

	cpuID    int
	ctx      stimulus.Context
	registry *Registry
	l1Dst    sim.RemotePort

	l1Out sim.Port // CPU -> L1
	l1In  sim.Port // L1 -> CPU response
}

// NewComp creates a CPU with the given id, reading from ctx and talking
// to its private L1 over a queue of the given depth. l1Dst names the
// L1's request-facing ingress port, the destination every CpuL1Cmd is
// addressed to.
func NewComp(name string, engine sim.Engine, freq sim.Freq, cpuID int, ctx stimulus.Context, queueDepth int, l1Dst sim.RemotePort) *Comp {
	c := &Comp{cpuID: cpuID, ctx: ctx, registry: NewRegistry(), l1Dst: l1Dst}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	c.l1Out = sim.NewPort(c, queueDepth, queueDepth, name+".L1Out")
	c.l1In = sim.NewPort(c, queueDepth, queueDepth, name+".L1In")
	c.AddPort(c.l1Out.Name(), c.l1Out)
	c.AddPort(c.l1In.Name(), c.l1In)

	return c
}

// Init arms the first tick.
func (c *Comp) Init() { c.TickLater() }

// L1Out returns the CPU's request-facing egress port to its L1.
func (c *Comp) L1Out() sim.Port { return c.l1Out }

// L1In returns the CPU's response-facing ingress port from its L1.
func (c *Comp) L1In() sim.Port { return c.l1In }

// Registry exposes the CPU's transaction registry for tests and monitor
// sinks.
func (c *Comp) Registry() *Registry { return c.registry }

// Tick retires any arrived response, then tries to issue the head
// stimulus command for this CPU if its time has come and the CPU->L1
// queue has room — the throttle named in §4.3.
func (c *Comp) Tick() bool {
	progress := c.retire()

	if c.issue() {
		progress = true
	}

	return progress
}

func (c *Comp) retire() bool {
	msg := c.l1In.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*coh.L1CpuRsp)
	if !ok {
		log.Panicf("cpuagent: %s received unexpected message %T", c.Name(), msg)
	}

	txn := rsp.Transaction()
	if txn == nil || !c.registry.Retire(txn.ID()) {
		log.Panicf("cpuagent: %s received L1CpuRsp for unknown transaction", c.Name())
	}

	c.l1In.RetrieveIncoming()
	c.InvokeHook(sim.HookCtx{Domain: c, Pos: coh.HookPosTransactionEnd, Item: txn})

	return true
}

func (c *Comp) issue() bool {
	cmd, ok := c.ctx.Peek(c.cpuID)
	if !ok {
		return false
	}

	if cmd.Time > c.CurrentTime() {
		c.TickAtTime(cmd.Time)

		return false
	}

	if !c.l1Out.CanSend() {
		return false
	}

	txn := coh.NewTransaction(cmd.Addr)

	req := &coh.CpuL1Cmd{Opcode: cmd.Opcode, Addr: cmd.Addr, RspDst: c.l1In.AsRemote()}
	req.MsgMeta.ID = sim.GetIDGenerator().Generate()
	req.MsgMeta.Src = c.l1Out.AsRemote()
	req.MsgMeta.Dst = c.l1Dst
	req.Class = coh.ClassCpuL1Cmd
	req.Txn = txn

	if err := c.l1Out.Send(req); err != nil {
		return false
	}

	c.ctx.Advance(c.cpuID)
	c.registry.Start(txn)
	c.InvokeHook(sim.HookCtx{Domain: c, Pos: coh.HookPosTransactionStart, Item: txn})

	return true
}
