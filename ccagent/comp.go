// Package ccagent implements the cluster cache controller: §4.6's
// gateway between a cluster's l2agent.Comp and the coherence fabric's
// NOC, running the CohSrt/CohCmd/CohCmdRsp/CohEnd request triplet on
// one side and the CohSnp/CohSnpRsp/Dt/DtRsp snoop protocol on the
// other.
package ccagent

import (
	"fmt"
	"log"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/primitives"
	"github.com/archsim/cohmesh/sim"
)

// DirMapper resolves the home directory's NOC identity for an address —
// the fabric models exactly one directory in the current configuration,
// but the map keeps CC decoupled from how many there are.
type DirMapper func(addr cachegeom.Addr) sim.RemotePort

type ccState int

const (
	srtPending ccState = iota
	cmdPending
	awaitingCmdRsp
	awaitingEnd
	awaitingDt
	finalizeReady
)

type txn struct {
	addr      cachegeom.Addr
	l2Req     *coh.L2CCAceCmd
	state     ccState
	isShared  bool
	passDirty bool

	// dtReceived counts Dt arrivals regardless of whether CohEnd has
	// been seen yet — a Dt is free to race ahead of the CohEnd that
	// tells CC how many to expect. endSeen/dtExpected are only
	// meaningful once handleEnd has run.
	dtReceived int
	dtExpected int
	endSeen    bool
}

type snoop struct {
	addr   cachegeom.Addr
	agent  sim.RemotePort
	snpID  string
	snpSrc sim.RemotePort

	// rsp is set once L2's snoop response arrives; dtSent/rspSent track
	// the Dt-forward and CohSnpRsp halves independently so a snoop
	// needing both never tries to send both from a single
	// resource-checked Exec. A snoop that forwarded a Dt stays open
	// until the target agent's DtRsp closes it; one that didn't forward
	// anything closes as soon as its CohSnpRsp is sent.
	rsp     *coh.L2CCAceSnpRsp
	dtSent  bool
	rspSent bool
}

// Comp is the cluster cache controller.
type Comp struct {
	*sim.TickingComponent

	nocID      sim.RemotePort
	nocIngress sim.RemotePort
	dirFor     DirMapper
	l2SnpDst   sim.RemotePort

	txns   *primitives.Table[string, *txn]
	byAddr map[cachegeom.Addr]string

	snoops  map[string]*snoop // keyed by the L2CCAceSnp id CC forwarded
	dtAwait map[string]string // Dt message id CC sent -> snoop key awaiting its DtRsp

	l2CmdIn    sim.Port
	l2RspOut   sim.Port
	l2SnpOut   sim.Port
	l2SnpRspIn sim.Port

	nocOut sim.Port
	nocIn  sim.Port

	arbiter *primitives.Arbiter

	creditsPerClass int
	credits         map[coh.CreditKey]*primitives.CreditCounter
}

// NewComp creates a CC. nocID is this CC's own NOC identity; nocIngress
// is the name of the NOC-side ingress port this CC's NocOut is wired to
// (see noc.Comp.AddEndpoint); dirFor resolves an address's home
// directory identity; l2SnpDst names the cluster's L2 snoop-facing
// ingress port; creditsPerClass seeds every per-(class,dest) credit
// counter this CC opens on the fabric.
func NewComp(
	name string, engine sim.Engine, freq sim.Freq,
	queueDepth, txnTableDepth, creditsPerClass int,
	nocID, nocIngress sim.RemotePort, dirFor DirMapper, l2SnpDst sim.RemotePort,
) *Comp {
	c := &Comp{
		nocID:           nocID,
		nocIngress:      nocIngress,
		dirFor:          dirFor,
		l2SnpDst:        l2SnpDst,
		txns:            primitives.NewTable[string, *txn](name+".Txns", txnTableDepth),
		byAddr:          make(map[cachegeom.Addr]string),
		snoops:          make(map[string]*snoop),
		dtAwait:         make(map[string]string),
		arbiter:         primitives.NewArbiter(name + ".Arbiter"),
		creditsPerClass: creditsPerClass,
		credits:         make(map[coh.CreditKey]*primitives.CreditCounter),
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	c.l2CmdIn = sim.NewPort(c, queueDepth, queueDepth, name+".L2CmdIn")
	c.l2RspOut = sim.NewPort(c, queueDepth, queueDepth, name+".L2RspOut")
	c.l2SnpOut = sim.NewPort(c, queueDepth, queueDepth, name+".L2SnpOut")
	c.l2SnpRspIn = sim.NewPort(c, queueDepth, queueDepth, name+".L2SnpRspIn")
	c.nocOut = sim.NewPort(c, queueDepth, queueDepth, name+".NocOut")
	c.nocIn = sim.NewPort(c, queueDepth, queueDepth, name+".NocIn")

	for _, p := range []sim.Port{c.l2CmdIn, c.l2RspOut, c.l2SnpOut, c.l2SnpRspIn, c.nocOut, c.nocIn} {
		c.AddPort(p.Name(), p)
	}

	c.txns.OnNonFull(c.TickLater)

	return c
}

// L2CmdIn returns the ACE command-facing ingress from L2.
func (c *Comp) L2CmdIn() sim.Port { return c.l2CmdIn }

// L2RspOut returns the ACE command-response egress to L2.
func (c *Comp) L2RspOut() sim.Port { return c.l2RspOut }

// L2SnpOut returns the ACE snoop-facing egress to L2.
func (c *Comp) L2SnpOut() sim.Port { return c.l2SnpOut }

// L2SnpRspIn returns the ACE snoop-response ingress from L2.
func (c *Comp) L2SnpRspIn() sim.Port { return c.l2SnpRspIn }

// NocOut returns the fabric-facing egress.
func (c *Comp) NocOut() sim.Port { return c.nocOut }

// TxnOccupancy reports the live transaction table's size and capacity,
// for a monitor sink.
func (c *Comp) TxnOccupancy() (size, capacity int) {
	return c.txns.Size(), c.txns.Capacity()
}

// NocIn returns the fabric-facing ingress (the NOC delivers a CC's
// unwrapped payloads — CohCmdRsp, CohEnd, CohSnp, Dt — here directly).
func (c *Comp) NocIn() sim.Port { return c.nocIn }

// creditFor returns (creating if necessary) the credit counter governing
// how many outstanding messages of class this CC may have in flight to
// dest at once. It never mutates the counter — callers add it to a
// coh.CmdList's Resources.Credits so coh.Run checks it before any Exec
// runs, and debit only from inside sendNoc once the send itself commits.
func (c *Comp) creditFor(class coh.Class, dest sim.RemotePort) *primitives.CreditCounter {
	key := coh.CreditKey{Class: class, Dest: dest}

	cc, ok := c.credits[key]
	if !ok {
		cc = primitives.NewCreditCounter(
			fmt.Sprintf("%s.Credit[%d->%s]", c.Name(), class, dest), c.creditsPerClass, c.creditsPerClass,
		)
		c.credits[key] = cc
	}

	return cc
}

// CreditBack replenishes the credit this CC debited when it emitted a
// message of class toward dest. It is wired as the noc.Comp's OnTransfer
// callback for this CC's endpoint, firing once the NOC has actually
// handed the message to dest.
func (c *Comp) CreditBack(class coh.Class, dest sim.RemotePort) {
	c.creditFor(class, dest).Credit()
}

func (c *Comp) nocInBlocked() bool {
	msg := c.nocIn.PeekIncoming()
	if msg == nil {
		return false
	}

	switch m := msg.(type) {
	case *coh.CohSnp:
		return coh.Resources{Ports: []sim.Port{c.l2SnpOut}}.Check() != nil
	case *coh.Dt:
		return coh.Resources{Ports: []sim.Port{c.nocOut}}.Check() != nil
	case *coh.CohEnd:
		t := c.txnFor(m.Transaction())
		if t == nil || t.dtReceived < m.DtCount {
			return false
		}

		return coh.Resources{Ports: []sim.Port{c.l2RspOut}}.Check() != nil
	default:
		return false
	}
}

func (c *Comp) driveSnoopFinalizeHasReq() bool {
	for _, s := range c.snoops {
		if s.rsp != nil && !s.rspSent {
			return true
		}
	}

	return false
}

func (c *Comp) driveTxnsHasReq() bool {
	for _, id := range c.txns.Keys() {
		t, _ := c.txns.Lookup(id)
		if t.state == srtPending || t.state == cmdPending || t.state == finalizeReady {
			return true
		}
	}

	return false
}

func (c *Comp) l2CmdInBlocked() bool {
	if c.l2CmdIn.PeekIncoming() == nil {
		return false
	}

	return coh.Resources{Tables: []coh.Fittable{c.txns}}.Check() != nil
}

// Tick arbitrates round-robin (§5) across this CC's five sources — a
// directory-initiated snoop or Dt or triplet-closing reply arriving on
// the fabric, a completed snoop's Dt/CohSnpRsp waiting to go out, an L2
// snoop response completing a forwarded snoop, an open request needing
// its next send, and a new ACE command from L2 — each Blocked() when its
// next send's actual resource check would fail, so a fully congested
// fabric surfaces as primitives.DeadlockError instead of stalling
// silently.
func (c *Comp) Tick() bool {
	sources := []struct {
		req primitives.FuncRequester
		run func() bool
	}{
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.nocIn.PeekIncoming() != nil },
				BlockedFunc: c.nocInBlocked,
			},
			c.handleNocIn,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  c.driveSnoopFinalizeHasReq,
				BlockedFunc: func() bool { return false },
			},
			c.driveSnoopFinalize,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.l2SnpRspIn.PeekIncoming() != nil },
				BlockedFunc: func() bool { return false },
			},
			c.handleL2SnpRsp,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  c.driveTxnsHasReq,
				BlockedFunc: func() bool { return false },
			},
			c.driveTxns,
		},
		{
			primitives.FuncRequester{
				HasReqFunc:  func() bool { return c.l2CmdIn.PeekIncoming() != nil },
				BlockedFunc: c.l2CmdInBlocked,
			},
			c.acceptL2Cmd,
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

// driveSnoopFinalize sends the next queued half (Dt, then CohSnpRsp) of
// a completed snoop, one message per Tick. A snoop that forwarded a Dt
// stays in c.snoops until the target agent's DtRsp arrives; one that
// didn't is removed as soon as its CohSnpRsp is sent.
func (c *Comp) driveSnoopFinalize() bool {
	for id, s := range c.snoops {
		if s.rsp == nil {
			continue
		}

		needsDt := s.agent != "" && s.rsp.Dt

		if needsDt && !s.dtSent {
			list := coh.CmdList{
				Resources: coh.Resources{
					Ports:   []sim.Port{c.nocOut},
					Credits: []coh.Debitable{c.creditFor(coh.ClassDt, s.agent)},
				},
				Exec: func() {
					dtID := c.sendDt(s.agent, s.rsp.Txn)
					c.dtAwait[dtID] = id
					s.dtSent = true
				},
			}

			if coh.Run(list) == nil {
				return true
			}

			continue
		}

		if s.rspSent {
			continue
		}

		dst := s.snpSrc

		list := coh.CmdList{
			Resources: coh.Resources{
				Ports:   []sim.Port{c.nocOut},
				Credits: []coh.Debitable{c.creditFor(coh.ClassCohSnpRsp, dst)},
			},
			Exec: func() {
				c.sendCohSnpRsp(s, s.rsp)
				s.rspSent = true

				if !needsDt {
					delete(c.snoops, id)
				}
			},
		}

		if coh.Run(list) == nil {
			return true
		}
	}

	return false
}

func (c *Comp) handleDtRsp(m *coh.DtRsp) bool {
	id, found := c.dtAwait[m.RspTo]
	if !found {
		log.Panicf("ccagent: %s received DtRsp for unknown Dt %s", c.Name(), m.RspTo)
	}

	c.nocIn.RetrieveIncoming()
	delete(c.dtAwait, m.RspTo)
	delete(c.snoops, id)

	return true
}

func (c *Comp) handleNocIn() bool {
	msg := c.nocIn.PeekIncoming()
	if msg == nil {
		return false
	}

	switch m := msg.(type) {
	case *coh.CohSnp:
		return c.forwardSnoop(m)
	case *coh.Dt:
		return c.collectDt(m)
	case *coh.DtRsp:
		return c.handleDtRsp(m)
	case *coh.CohCmdRsp:
		return c.handleCmdRsp(m)
	case *coh.CohEnd:
		return c.handleEnd(m)
	default:
		log.Panicf("ccagent: %s received unexpected message %T", c.Name(), msg)

		return false
	}
}

func (c *Comp) forwardSnoop(m *coh.CohSnp) bool {
	op := coh.SnpReadShared
	switch m.Opcode {
	case coh.SnpReadUnique:
		op = coh.SnpReadUnique
	case coh.SnpCleanInvalid:
		op = coh.SnpCleanInvalid
	case coh.SnpMakeInvalid:
		op = coh.SnpMakeInvalid
	}

	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.l2SnpOut}},
		Exec: func() {
			c.nocIn.RetrieveIncoming()

			snp := &coh.CCL2AceSnp{Opcode: op, Addr: m.Addr, RspDst: c.l2SnpRspIn.AsRemote()}
			snp.MsgMeta.ID = sim.GetIDGenerator().Generate()
			snp.MsgMeta.Src = c.l2SnpOut.AsRemote()
			snp.MsgMeta.Dst = c.l2SnpDst
			snp.Class = coh.ClassCCL2AceSnp
			snp.Txn = m.Txn

			c.snoops[snp.Meta().ID] = &snoop{addr: m.Addr, agent: m.Agent, snpID: m.Meta().ID, snpSrc: m.Meta().Src}

			if err := c.l2SnpOut.Send(snp); err != nil {
				log.Panicf("ccagent: %s resource check passed but send failed: %v", c.Name(), err)
			}
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) handleL2SnpRsp() bool {
	msg := c.l2SnpRspIn.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*coh.L2CCAceSnpRsp)
	if !ok {
		log.Panicf("ccagent: %s received unexpected message %T", c.Name(), msg)
	}

	s, found := c.snoops[rsp.RspTo]
	if !found {
		log.Panicf("ccagent: %s received L2CCAceSnpRsp for unknown snoop %s", c.Name(), rsp.RspTo)
	}

	// A live intervention forwards Dt to the requester; a recall
	// (s.agent == "") never forwards a peer Dt — the directory folds the
	// writeback into its LLC itself when CohSnpRsp.Pd is set.
	c.l2SnpRspIn.RetrieveIncoming()
	s.rsp = rsp

	return true
}

func (c *Comp) sendDt(dst sim.RemotePort, t *coh.Transaction) string {
	dt := &coh.Dt{}
	dt.Class = coh.ClassDt
	dt.Txn = t

	return c.sendNoc(dt, dst)
}

func (c *Comp) sendDtRsp(dst sim.RemotePort, rspTo string, t *coh.Transaction) {
	rsp := &coh.DtRsp{RspTo: rspTo}
	rsp.Class = coh.ClassDtRsp
	rsp.Txn = t

	c.sendNoc(rsp, dst)
}

func (c *Comp) sendCohSnpRsp(s *snoop, rsp *coh.L2CCAceSnpRsp) {
	out := &coh.CohSnpRsp{Dt: rsp.Dt, Pd: rsp.Pd, IsShared: rsp.IsShared, Wu: rsp.WasUnique, RspTo: s.snpID}
	out.Class = coh.ClassCohSnpRsp
	out.Txn = rsp.Txn

	c.sendNoc(out, s.snpSrc)
}

// collectDt accepts one Dt and acknowledges it with a DtRsp — the two
// always travel together, so this counts as this Tick's one send. If
// this Dt completes the transaction (CohEnd may or may not have arrived
// yet), the actual CCL2AceRsp to L2 waits for a later Tick via
// finalizeReady, since that would be a second send.
func (c *Comp) collectDt(m *coh.Dt) bool {
	t := c.txnFor(m.Transaction())
	if t == nil {
		log.Panicf("ccagent: %s received Dt for unknown transaction", c.Name())
	}

	src := m.Meta().Src

	list := coh.CmdList{
		Resources: coh.Resources{
			Ports:   []sim.Port{c.nocOut},
			Credits: []coh.Debitable{c.creditFor(coh.ClassDtRsp, src)},
		},
		Exec: func() {
			c.nocIn.RetrieveIncoming()
			t.dtReceived++
			c.sendDtRsp(src, m.Meta().ID, t.l2Req.Txn)

			if t.state == awaitingDt && t.endSeen && t.dtReceived >= t.dtExpected {
				t.state = finalizeReady
			}
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) handleCmdRsp(m *coh.CohCmdRsp) bool {
	t := c.txnFor(m.Transaction())
	if t == nil {
		log.Panicf("ccagent: %s received CohCmdRsp for unknown transaction", c.Name())
	}

	c.nocIn.RetrieveIncoming()

	if t.state == awaitingCmdRsp {
		t.state = awaitingEnd
	}

	return true
}

func (c *Comp) handleEnd(m *coh.CohEnd) bool {
	id := m.Transaction().ID()

	t := c.txnFor(m.Transaction())
	if t == nil {
		log.Panicf("ccagent: %s received CohEnd for unknown transaction", c.Name())
	}

	c.nocIn.RetrieveIncoming()

	t.isShared = m.IsShared
	t.passDirty = m.PassDirty
	t.dtExpected = m.DtCount
	t.endSeen = true

	if t.dtReceived >= m.DtCount {
		return c.finalize(id, t)
	}

	t.state = awaitingDt

	return true
}

func (c *Comp) finalize(id string, t *txn) bool {
	list := coh.CmdList{
		Resources: coh.Resources{Ports: []sim.Port{c.l2RspOut}},
		Exec: func() {
			dst := t.l2Req.RspDst
			if dst == "" {
				dst = t.l2Req.Meta().Src
			}

			rsp := &coh.CCL2AceRsp{IsShared: t.isShared, PassDirty: t.passDirty, RspTo: t.l2Req.Meta().ID}
			rsp.MsgMeta.ID = sim.GetIDGenerator().Generate()
			rsp.MsgMeta.Src = c.l2RspOut.AsRemote()
			rsp.MsgMeta.Dst = dst
			rsp.Class = coh.ClassCCL2AceRsp
			rsp.Txn = t.l2Req.Txn

			if err := c.l2RspOut.Send(rsp); err != nil {
				log.Panicf("ccagent: %s resource check passed but send failed: %v", c.Name(), err)
			}

			c.txns.Remove(id)
			delete(c.byAddr, t.addr)
		},
	}

	return coh.Run(list) == nil
}

// driveTxns advances the next open transaction needing a send on its
// triplet's opening half (CohSrt then CohCmd), one message per Tick.
func (c *Comp) driveTxns() bool {
	for _, id := range c.txns.Keys() {
		t, _ := c.txns.Lookup(id)

		switch t.state {
		case srtPending:
			if c.sendSrt(id, t) {
				return true
			}
		case cmdPending:
			if c.sendCmd(id, t) {
				return true
			}
		case finalizeReady:
			if c.finalize(id, t) {
				return true
			}
		}
	}

	return false
}

func (c *Comp) sendSrt(id string, t *txn) bool {
	dst := c.dirFor(t.addr)

	list := coh.CmdList{
		Resources: coh.Resources{
			Ports:   []sim.Port{c.nocOut},
			Credits: []coh.Debitable{c.creditFor(coh.ClassCohSrt, dst)},
		},
		Exec: func() {
			srt := &coh.CohSrt{Addr: t.addr}
			srt.Class = coh.ClassCohSrt
			srt.Txn = t.l2Req.Txn

			c.sendNoc(srt, dst)
			t.state = cmdPending
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) sendCmd(id string, t *txn) bool {
	dst := c.dirFor(t.addr)

	list := coh.CmdList{
		Resources: coh.Resources{
			Ports:   []sim.Port{c.nocOut},
			Credits: []coh.Debitable{c.creditFor(coh.ClassCohCmd, dst)},
		},
		Exec: func() {
			cmd := &coh.CohCmd{Opcode: t.l2Req.Opcode, Addr: t.addr, Origin: c.nocID}
			cmd.Class = coh.ClassCohCmd
			cmd.Txn = t.l2Req.Txn

			c.sendNoc(cmd, dst)
			t.state = awaitingCmdRsp
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) acceptL2Cmd() bool {
	msg := c.l2CmdIn.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(*coh.L2CCAceCmd)
	if !ok {
		log.Panicf("ccagent: %s received unexpected message %T", c.Name(), msg)
	}

	list := coh.CmdList{
		Resources: coh.Resources{Tables: []coh.Fittable{c.txns}},
		Exec: func() {
			c.l2CmdIn.RetrieveIncoming()

			id := req.Txn.ID()
			t := &txn{addr: req.Addr, l2Req: req, state: srtPending}

			if err := c.txns.Insert(id, t); err != nil {
				log.Panicf("ccagent: %s resource check passed but insert failed: %v", c.Name(), err)
			}

			c.byAddr[req.Addr] = id
			c.sendSrt(id, t)
		},
	}

	return coh.Run(list) == nil
}

func (c *Comp) txnFor(t *coh.Transaction) *txn {
	if t == nil {
		return nil
	}

	v, ok := c.txns.Lookup(t.ID())
	if !ok {
		return nil
	}

	return v
}

// sendNoc addresses msg (setting its ID and NOC-identity Src/Dst),
// wraps it in a coh.NocMsg addressed to this CC's own NOC ingress port,
// and sends it on nocOut — the one path every outbound fabric message
// takes. It returns the payload's assigned message ID, since some
// callers must correlate a later reply (e.g. a Dt's DtRsp) against it.
func (c *Comp) sendNoc(msg sim.Msg, dest sim.RemotePort) string {
	meta := msg.Meta()
	meta.ID = sim.GetIDGenerator().Generate()
	meta.Src = c.nocID
	meta.Dst = dest

	env := &coh.NocMsg{Payload: msg, Origin: c.nocID, Dest: dest}
	env.MsgMeta.ID = sim.GetIDGenerator().Generate()
	env.MsgMeta.Src = c.nocOut.AsRemote()
	env.MsgMeta.Dst = c.nocIngress
	env.Class = coh.ClassNocMsg

	if err := c.nocOut.Send(env); err != nil {
		log.Panicf("ccagent: send failed after resource check passed: %v", err)
	}

	if cl, ok := msg.(coh.Classed); ok {
		if err := c.creditFor(cl.ClassOf(), dest).Debit(); err != nil {
			log.Panicf("ccagent: %s sent after resource check passed but credit was empty: %v", c.Name(), err)
		}
	}

	return meta.ID
}
