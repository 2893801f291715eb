package primitives

import "fmt"

// Requester is anything an Arbiter can pick among: it has pending work
// (HasReq) but may currently be unable to make progress (Blocked), e.g.
// because its resource check failed and it's waiting on a downstream
// event.
type Requester interface {
	HasReq() bool
	Blocked() bool
}

// FuncRequester adapts two closures to the Requester interface, for
// callers that would rather build one Requester per source inline than
// declare a dedicated named type.
type FuncRequester struct {
	HasReqFunc  func() bool
	BlockedFunc func() bool
}

// HasReq implements Requester.
func (f FuncRequester) HasReq() bool { return f.HasReqFunc() }

// Blocked implements Requester.
func (f FuncRequester) Blocked() bool { return f.BlockedFunc() }

// DeadlockError is raised by Tournament when every requester has work but
// every one of them is blocked: nothing in the fabric can make progress.
// It carries enough context to be reported as the fatal "resource
// deadlock" diagnostic the spec calls for.
type DeadlockError struct {
	Arbiter string
	N       int
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("primitives: arbiter %s deadlocked across %d requesters",
		e.Arbiter, e.N)
}

// Arbiter picks one Requester per round using round-robin starting just
// after the previous winner, skipping blocked requesters. Requesters are
// addressed by index into the slice passed to Tournament; the arbiter
// only remembers the index of the last winner.
type Arbiter struct {
	name       string
	lastWinner int
}

// NewArbiter creates an Arbiter. name is used only in deadlock diagnostics.
func NewArbiter(name string) *Arbiter {
	return &Arbiter{name: name, lastWinner: -1}
}

// Tournament scans requesters starting at (lastWinner+1) mod n and returns
// the index of the first one that HasReq() and is not Blocked(). If every
// requester has work and every one of them is blocked, it returns a
// *DeadlockError. If some requesters are blocked and the rest have no
// work, or no requester has work at all, it returns (-1, nil): there's
// nothing to arbitrate this round, which is not a deadlock.
func (a *Arbiter) Tournament(requesters []Requester) (int, error) {
	n := len(requesters)
	if n == 0 {
		return -1, nil
	}

	reqN := 0
	anyUnblocked := false

	start := (a.lastWinner + 1) % n

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		r := requesters[idx]

		if !r.HasReq() {
			continue
		}

		reqN++

		if r.Blocked() {
			continue
		}

		anyUnblocked = true
		a.lastWinner = idx

		return idx, nil
	}

	if reqN == n && !anyUnblocked {
		return -1, &DeadlockError{Arbiter: a.name, N: n}
	}

	return -1, nil
}

// Reset clears the arbiter's memory of the last winner, so the next
// tournament starts scanning from index 0. Used by tests that want a
// deterministic first pick.
func (a *Arbiter) Reset() {
	a.lastWinner = -1
}
