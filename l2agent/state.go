package l2agent

import (
	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

// State is a MOESI-L2 cache line state (§3: {I, IS, IE, S, E, M, O, OE}).
type State int

// L2 line states.
const (
	I State = iota
	IS
	IE
	S
	E
	M
	O
	OE
)

func (s State) String() string {
	switch s {
	case I:
		return "I"
	case IS:
		return "IS"
	case IE:
		return "IE"
	case S:
		return "S"
	case E:
		return "E"
	case M:
		return "M"
	case O:
		return "O"
	case OE:
		return "OE"
	default:
		return "State(?)"
	}
}

// Transient reports whether a state implies at least one awaited reply.
func (s State) Transient() bool { return s == IS || s == IE || s == OE }

// LineMeta is the per-line payload the L2 tag store holds: its address,
// state, which of the cluster's L1s currently share it (by the name of
// each L1's L2In port, the key RegisterL1 records for that L1), whether
// the owner's copy is dirty (folded in via the
// L1-evict back door rather than a message), and the transaction, if
// any, in flight for it.
type LineMeta struct {
	Addr        cachegeom.Addr
	State       State
	Sharers     map[sim.RemotePort]bool
	OwnerDirty  bool
	Txn         *coh.Transaction
	PendingReq  *coh.L1L2Cmd
}
