package cpuagent

import "github.com/archsim/cohmesh/coh"

// Registry is the CPU's explicit transaction registry (§4.3's "local
// set" and a supplemented feature so the CLI/monitor surface can report
// issue/retire counts without reaching into a private field).
type Registry struct {
	outstanding map[string]*coh.Transaction
	issueN      int
	retireN     int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{outstanding: make(map[string]*coh.Transaction)}
}

// Start records a newly issued transaction and bumps IssueN.
func (r *Registry) Start(txn *coh.Transaction) {
	r.outstanding[txn.ID()] = txn
	r.issueN++
}

// Retire removes a transaction and bumps RetireN. It reports whether the
// transaction was actually outstanding — a retire for an unknown
// transaction is a protocol violation (§7 category 3), not silently
// ignored.
func (r *Registry) Retire(id string) bool {
	if _, found := r.outstanding[id]; !found {
		return false
	}

	delete(r.outstanding, id)
	r.retireN++

	return true
}

// IssueN returns how many transactions have been issued.
func (r *Registry) IssueN() int { return r.issueN }

// RetireN returns how many transactions have retired.
func (r *Registry) RetireN() int { return r.retireN }

// Outstanding returns how many transactions are currently in flight —
// zero at end-of-simulation is the §8 "transaction-table cleanliness"
// invariant, applied to the CPU's own registry.
func (r *Registry) Outstanding() int { return len(r.outstanding) }
