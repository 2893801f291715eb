// Package memctrl implements the fixed-latency main-memory controller: a
// fill/writeback endpoint with no further modelled behavior (§1
// non-goals — no functional data, no real memory timing beyond a
// configured latency).
package memctrl

import (
	"log"

	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

type pendingCmd struct {
	cmd     *coh.MemCmd
	readyAt sim.VTimeInSec
}

// Comp is the memory controller agent.
type Comp struct {
	*sim.TickingComponent

	in  sim.Port
	out sim.Port

	latencyCycles int
	pending       []pendingCmd
}

// NewComp creates a memory controller with the given queue depth and
// fixed command latency (in cycles at freq).
func NewComp(name string, engine sim.Engine, freq sim.Freq, queueDepth, latencyCycles int) *Comp {
	c := &Comp{latencyCycles: latencyCycles}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	c.in = sim.NewPort(c, queueDepth, queueDepth, name+".In")
	c.out = sim.NewPort(c, queueDepth, queueDepth, name+".Out")
	c.AddPort(c.in.Name(), c.in)
	c.AddPort(c.out.Name(), c.out)

	return c
}

// In returns the memory controller's command-facing ingress port.
func (c *Comp) In() sim.Port { return c.in }

// Out returns the memory controller's response-facing egress port.
func (c *Comp) Out() sim.Port { return c.out }

// Tick accepts at most one new MemCmd per cycle and, once accepted, waits
// latencyCycles before responding — the "fixed-latency" part of the
// endpoint's contract.
func (c *Comp) Tick() bool {
	progress := false
	now := c.CurrentTime()

	msg := c.in.PeekIncoming()
	if msg != nil {
		cmd, ok := msg.(*coh.MemCmd)
		if !ok {
			log.Panicf("memctrl: %s received unexpected message %T", c.Name(), msg)
		}

		c.in.RetrieveIncoming()
		readyAt := c.Freq.NCyclesLater(c.latencyCycles, now)
		c.pending = append(c.pending, pendingCmd{cmd: cmd, readyAt: readyAt})
		c.TickAfter(c.latencyCycles)
		progress = true
	}

	if len(c.pending) > 0 && c.pending[0].readyAt <= now && c.out.CanSend() {
		entry := c.pending[0]

		rspOp := coh.MemReadOkay
		if entry.cmd.Opcode == coh.MemWrite {
			rspOp = coh.MemWriteOkay
		}

		dst := entry.cmd.RspDst
		if dst == "" {
			dst = entry.cmd.Meta().Src
		}

		rsp := &coh.MemRsp{Opcode: rspOp, RspTo: entry.cmd.Meta().ID}
		rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
		rsp.MsgMeta.Src = c.out.AsRemote()
		rsp.MsgMeta.Dst = dst

		if err := c.out.Send(rsp); err == nil {
			c.pending = c.pending[1:]
			progress = true
		}
	}

	if len(c.pending) > 0 {
		c.TickAfter(1)
	}

	return progress
}
