package diragent

import (
	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

// State is a directory's coarse view of a line: it never distinguishes
// exclusive from modified the way an L2 does, since from the home node's
// perspective both simply mean "some CC is the sole owner and might hold
// dirty data."
type State int

// Directory line states.
const (
	I State = iota
	S
	M
)

func (s State) String() string {
	switch s {
	case I:
		return "I"
	case S:
		return "S"
	case M:
		return "M"
	default:
		return "State(?)"
	}
}

// LineMeta is a directory's per-line record: which CCs hold a clean
// shared copy (valid in S) or which one CC is the sole owner (valid in
// M). The directory tracks no dirtiness of its own — that only becomes
// known transiently, mid-snoop, as a response flag.
type LineMeta struct {
	Addr    cachegeom.Addr
	State   State
	Sharers map[sim.RemotePort]bool
	Owner   sim.RemotePort
}

type reqState int

const (
	dispatchPending reqState = iota
	snoopingOwner
	snoopingSharers
	awaitingLLCSend
	fillingLLC
	sendingDt
	endReady
)

// request is one CohCmd's in-flight bookkeeping, from the CohCmdRsp
// already sent through to the CohEnd that closes it.
type request struct {
	addr   cachegeom.Addr
	origin sim.RemotePort
	opcode coh.AceOp
	cmdID  string
	txn    *coh.Transaction

	state reqState

	passDirty    bool
	sharedResult bool
	dtN          int

	remainingSharers []sim.RemotePort
	pendingSnoopAcks int
	needLLC          bool
}

// recall is a directory-initiated eviction's bookkeeping: invalidate the
// current owner, then fold any dirty data back into the LLC.
type recall struct {
	addr  cachegeom.Addr
	owner sim.RemotePort
}
