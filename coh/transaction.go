package coh

import (
	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/sim"
)

// Transaction is the opaque identity created when a request leaves the
// CPU and destroyed when its response retires. It is the key under which
// every agent on the request's path installs a per-transaction state
// record (an L1/L2 MSHR-equivalent, a CC line, a directory's in-flight
// entry).
type Transaction struct {
	id   string
	addr cachegeom.Addr
}

// NewTransaction allocates a fresh Transaction for addr, using the
// fabric's shared ID generator so transaction IDs and message IDs are
// drawn from the same deterministic (or xid-backed) sequence.
func NewTransaction(addr cachegeom.Addr) *Transaction {
	return &Transaction{id: sim.GetIDGenerator().Generate(), addr: addr}
}

// ID returns the transaction's identity string.
func (t *Transaction) ID() string { return t.id }

// Addr returns the line address the transaction targets.
func (t *Transaction) Addr() cachegeom.Addr { return t.addr }
