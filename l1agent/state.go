package l1agent

import (
	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
)

// State is a MOESI-L1 cache line state (§3: {I, IS, S, IE, E, EM, M, MI}).
type State int

// L1 line states.
const (
	I State = iota
	IS
	S
	IE
	E
	EM
	M
	MI
)

func (s State) String() string {
	switch s {
	case I:
		return "I"
	case IS:
		return "IS"
	case S:
		return "S"
	case IE:
		return "IE"
	case E:
		return "E"
	case EM:
		return "EM"
	case M:
		return "M"
	case MI:
		return "MI"
	default:
		return "State(?)"
	}
}

// Writeable reports whether a line in this state may be written locally
// without first going back to L2 — the "writeable line at L1" half of
// the write-through invariant in §3.
func (s State) Writeable() bool { return s == E || s == EM || s == M }

// Readable reports whether a line in this state holds a valid copy.
func (s State) Readable() bool { return s == S || s == E || s == EM || s == M }

// Transient reports whether a state implies at least one awaited reply
// (§3's stable/transient invariant).
func (s State) Transient() bool { return s == IS || s == IE || s == EM || s == MI }

// LineMeta is the per-line payload the L1 tag store holds: its address
// (so a victim can be identified without re-deriving it from set/tag),
// its state, and the transaction and originating request, if any,
// currently in flight for it.
type LineMeta struct {
	Addr       cachegeom.Addr
	State      State
	Txn        *coh.Transaction
	PendingReq *coh.CpuL1Cmd
}
