package coh

import (
	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/sim"
)

// Class identifies a message's wire class independent of its Go type,
// used by pools and by agents that log or route on class alone.
type Class int

// Classed is implemented by every concrete message type through the
// embedded Base, letting code holding only a sim.Msg ask for its wire
// class without a type switch over every concrete type.
type Classed interface {
	ClassOf() Class
}

// Message classes, in the order the spec lists them.
const (
	ClassCpuL1Cmd Class = iota
	ClassL1CpuRsp
	ClassL1L2Cmd
	ClassL2L1Rsp
	ClassL2CCAceCmd
	ClassCCL2AceRsp
	ClassCCL2AceSnp
	ClassL2CCAceSnpRsp
	ClassCohSrt
	ClassCohCmd
	ClassCohCmdRsp
	ClassCohEnd
	ClassCohSnp
	ClassCohSnpRsp
	ClassDt
	ClassDtRsp
	ClassLLCCmd
	ClassLLCRsp
	ClassMemCmd
	ClassMemRsp
	ClassNocMsg
)

// Base carries the {class, transaction, origin} fields every message
// shares, plus the sim.MsgMeta every sim.Msg needs for routing. "origin"
// in the spec's sense — the agent a reply must eventually reach, which
// can differ from the immediate sim.MsgMeta.Src/Dst port pair once a
// message crosses the NOC — is carried as Origin on the classes that
// need it explicitly (CohCmd, CohSnp); for classes where origin is
// simply "whoever sent this", MsgMeta.Src already serves that role.
type Base struct {
	sim.MsgMeta

	Class Class
	Txn   *Transaction
}

// Meta implements sim.Msg.
func (b *Base) Meta() *sim.MsgMeta { return &b.MsgMeta }

// ClassOf implements Classed.
func (b *Base) ClassOf() Class { return b.Class }

// Transaction returns the transaction this message belongs to.
func (b *Base) Transaction() *Transaction { return b.Txn }

func cloneMeta(dst *Base, src Base) {
	*dst = src
	dst.MsgMeta.ID = sim.GetIDGenerator().Generate()
}

// CpuL1Cmd is a CPU's request to its private L1: a Load or a Store at
// Addr. RspDst names the CPU's response-facing ingress; left empty, L1
// falls back to replying to the command's Src.
type CpuL1Cmd struct {
	Base

	Opcode CPUOp
	Addr   cachegeom.Addr
	RspDst sim.RemotePort
}

// Clone implements sim.Msg.
func (m *CpuL1Cmd) Clone() sim.Msg {
	c := &CpuL1Cmd{Opcode: m.Opcode, Addr: m.Addr, RspDst: m.RspDst}
	cloneMeta(&c.Base, m.Base)

	return c
}

// L1CpuRsp completes a CpuL1Cmd; it carries no payload beyond completion.
type L1CpuRsp struct {
	Base

	RspTo string
}

// Clone implements sim.Msg.
func (m *L1CpuRsp) Clone() sim.Msg {
	c := &L1CpuRsp{RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *L1CpuRsp) GetRspTo() string { return m.RspTo }

// L1L2Cmd is an L1's request to its shared L2: L1GetS or L1GetE at Addr,
// tagging which L1 (by port name) issued it.
type L1L2Cmd struct {
	Base

	Opcode L1L2Op
	Addr   cachegeom.Addr
	L1     sim.RemotePort
}

// Clone implements sim.Msg.
func (m *L1L2Cmd) Clone() sim.Msg {
	c := &L1L2Cmd{Opcode: m.Opcode, Addr: m.Addr, L1: m.L1}
	cloneMeta(&c.Base, m.Base)

	return c
}

// L2L1Rsp completes an L1L2Cmd, reporting whether the granted line is
// shared.
type L2L1Rsp struct {
	Base

	IsShared bool
	RspTo    string
}

// Clone implements sim.Msg.
func (m *L2L1Rsp) Clone() sim.Msg {
	c := &L2L1Rsp{IsShared: m.IsShared, RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *L2L1Rsp) GetRspTo() string { return m.RspTo }

// L2CCAceCmd is an L2's ACE master command to its CC: ReadShared,
// ReadUnique or CleanUnique at Addr. RspDst names L2's ACE response
// ingress; left empty, CC falls back to replying to the command's Src.
type L2CCAceCmd struct {
	Base

	Opcode AceOp
	Addr   cachegeom.Addr
	RspDst sim.RemotePort
}

// Clone implements sim.Msg.
func (m *L2CCAceCmd) Clone() sim.Msg {
	c := &L2CCAceCmd{Opcode: m.Opcode, Addr: m.Addr, RspDst: m.RspDst}
	cloneMeta(&c.Base, m.Base)

	return c
}

// CCL2AceRsp completes an L2CCAceCmd with the ACE response flags.
type CCL2AceRsp struct {
	Base

	IsShared  bool
	PassDirty bool
	RspTo     string
}

// Clone implements sim.Msg.
func (m *CCL2AceRsp) Clone() sim.Msg {
	c := &CCL2AceRsp{IsShared: m.IsShared, PassDirty: m.PassDirty, RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *CCL2AceRsp) GetRspTo() string { return m.RspTo }

// CCL2AceSnp is a CC's ACE snoop to its cluster's L2. RspDst names CC's
// snoop-response ingress; left empty, L2 falls back to replying to the
// snoop's Src.
type CCL2AceSnp struct {
	Base

	Opcode AceSnpOp
	Addr   cachegeom.Addr
	RspDst sim.RemotePort
}

// Clone implements sim.Msg.
func (m *CCL2AceSnp) Clone() sim.Msg {
	c := &CCL2AceSnp{Opcode: m.Opcode, Addr: m.Addr, RspDst: m.RspDst}
	cloneMeta(&c.Base, m.Base)

	return c
}

// L2CCAceSnpRsp completes a CCL2AceSnp with the ACE snoop response flags.
type L2CCAceSnpRsp struct {
	Base

	Dt        bool
	Pd        bool
	IsShared  bool
	WasUnique bool
	RspTo     string
}

// Clone implements sim.Msg.
func (m *L2CCAceSnpRsp) Clone() sim.Msg {
	c := &L2CCAceSnpRsp{Dt: m.Dt, Pd: m.Pd, IsShared: m.IsShared, WasUnique: m.WasUnique, RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *L2CCAceSnpRsp) GetRspTo() string { return m.RspTo }

// CohSrt opens the three-phase NOC command triplet from a CC to its home
// directory: "a transaction for Addr is starting".
type CohSrt struct {
	Base

	Addr cachegeom.Addr
}

// Clone implements sim.Msg.
func (m *CohSrt) Clone() sim.Msg {
	c := &CohSrt{Addr: m.Addr}
	cloneMeta(&c.Base, m.Base)

	return c
}

// CohCmd carries the ACE opcode from a CC to its home directory, naming
// Origin as the requesting CC's NOC endpoint so the directory (and any
// peer it snoops) knows who to eventually send Dt to.
type CohCmd struct {
	Base

	Opcode AceOp
	Addr   cachegeom.Addr
	Origin sim.RemotePort
}

// Clone implements sim.Msg.
func (m *CohCmd) Clone() sim.Msg {
	c := &CohCmd{Opcode: m.Opcode, Addr: m.Addr, Origin: m.Origin}
	cloneMeta(&c.Base, m.Base)

	return c
}

// CohCmdRsp acknowledges a CohCmd, releasing its credit; it carries no
// payload.
type CohCmdRsp struct {
	Base

	RspTo string
}

// Clone implements sim.Msg.
func (m *CohCmdRsp) Clone() sim.Msg {
	c := &CohCmdRsp{RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *CohCmdRsp) GetRspTo() string { return m.RspTo }

// CohEnd closes the three-phase command triplet: the directory reports
// the transaction's final {is_shared, pass_dirty, dt_count}.
type CohEnd struct {
	Base

	IsShared  bool
	PassDirty bool
	DtCount   int
	RspTo     string
}

// Clone implements sim.Msg.
func (m *CohEnd) Clone() sim.Msg {
	c := &CohEnd{IsShared: m.IsShared, PassDirty: m.PassDirty, DtCount: m.DtCount, RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *CohEnd) GetRspTo() string { return m.RspTo }

// CohSnp is a directory-initiated snoop to a CC. Agent names the live
// requester on whose behalf the snoop runs (for an intervention); it is
// the zero value for a directory-initiated recall, which the CC must
// treat as a write-back rather than a forward.
type CohSnp struct {
	Base

	Opcode AceSnpOp
	Addr   cachegeom.Addr
	Agent  sim.RemotePort // empty means "recall, no live requester"
}

// Clone implements sim.Msg.
func (m *CohSnp) Clone() sim.Msg {
	c := &CohSnp{Opcode: m.Opcode, Addr: m.Addr, Agent: m.Agent}
	cloneMeta(&c.Base, m.Base)

	return c
}

// IsRecall reports whether this snoop has no live requester attached.
func (m *CohSnp) IsRecall() bool { return m.Agent == "" }

// CohSnpRsp completes a CohSnp back to the originating directory.
type CohSnpRsp struct {
	Base

	Dt        bool
	Pd        bool
	IsShared  bool
	Wu        bool
	RspTo     string
}

// Clone implements sim.Msg.
func (m *CohSnpRsp) Clone() sim.Msg {
	c := &CohSnpRsp{Dt: m.Dt, Pd: m.Pd, IsShared: m.IsShared, Wu: m.Wu, RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *CohSnpRsp) GetRspTo() string { return m.RspTo }

// Dt is a data-transfer message used for both intervention forwarding and
// directory/LLC fill delivery. It carries no functional payload.
type Dt struct {
	Base
}

// Clone implements sim.Msg.
func (m *Dt) Clone() sim.Msg {
	c := &Dt{}
	cloneMeta(&c.Base, m.Base)

	return c
}

// DtRsp acknowledges a Dt.
type DtRsp struct {
	Base

	RspTo string
}

// Clone implements sim.Msg.
func (m *DtRsp) Clone() sim.Msg {
	c := &DtRsp{RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *DtRsp) GetRspTo() string { return m.RspTo }

// LLCCmd is a directory's command to its co-located LLC: Fill, Evict or
// PutLine for Addr, naming Agent as the requester Dt must ultimately
// reach on a Fill. RspDst names the directory's response-facing ingress
// port the LLCRsp must be addressed to; a directory's own egress port
// cannot double as that address once both are plugged into the same
// connection, so this travels alongside the command rather than being
// inferred from its Src. Left empty, the LLC falls back to replying to
// the command's Src, for callers content addressing send and receive
// with the same port.
type LLCCmd struct {
	Base

	Opcode LLCOp
	Addr   cachegeom.Addr
	Agent  sim.RemotePort
	RspDst sim.RemotePort
}

// Clone implements sim.Msg.
func (m *LLCCmd) Clone() sim.Msg {
	c := &LLCCmd{Opcode: m.Opcode, Addr: m.Addr, Agent: m.Agent, RspDst: m.RspDst}
	cloneMeta(&c.Base, m.Base)

	return c
}

// LLCRsp completes an LLCCmd.
type LLCRsp struct {
	Base

	Opcode LLCOp
	Status LLCStatus
	RspTo  string
}

// Clone implements sim.Msg.
func (m *LLCRsp) Clone() sim.Msg {
	c := &LLCRsp{Opcode: m.Opcode, Status: m.Status, RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *LLCRsp) GetRspTo() string { return m.RspTo }

// MemCmd is the LLC's command to the fixed-latency memory controller.
// RspDst names the LLC's response ingress; left empty, the controller
// falls back to replying to the command's Src.
type MemCmd struct {
	Base

	Opcode MemOp
	Addr   cachegeom.Addr
	RspDst sim.RemotePort
}

// Clone implements sim.Msg.
func (m *MemCmd) Clone() sim.Msg {
	c := &MemCmd{Opcode: m.Opcode, Addr: m.Addr, RspDst: m.RspDst}
	cloneMeta(&c.Base, m.Base)

	return c
}

// MemRsp completes a MemCmd.
type MemRsp struct {
	Base

	Opcode MemOp
	RspTo  string
}

// Clone implements sim.Msg.
func (m *MemRsp) Clone() sim.Msg {
	c := &MemRsp{Opcode: m.Opcode, RspTo: m.RspTo}
	cloneMeta(&c.Base, m.Base)

	return c
}

// GetRspTo implements sim.Rsp.
func (m *MemRsp) GetRspTo() string { return m.RspTo }

// NocMsg is the envelope the NOC actually routes: Payload is the wrapped
// inter-agent message, Origin and Dest name the NOC endpoints (not the
// final agent ports) the envelope travels between.
type NocMsg struct {
	Base

	Payload sim.Msg
	Origin  sim.RemotePort
	Dest    sim.RemotePort
}

// Clone implements sim.Msg.
func (m *NocMsg) Clone() sim.Msg {
	c := &NocMsg{Payload: m.Payload, Origin: m.Origin, Dest: m.Dest}
	cloneMeta(&c.Base, m.Base)

	return c
}
