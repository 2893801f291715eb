package coh

import "github.com/archsim/cohmesh/sim"

// Resources is the tentative cost of one command list, computed before any
// of its effects run. An agent's Tick builds one of these for the command
// list the protocol produced for the message at the head of its winning
// queue, checks it via coh.Run, and only then is allowed to
// mutate any state — this is the opcode language's resource-check-before-
// commit discipline (§5 and §9 of the design), realized as a declarative
// list of what must have room rather than a literal bytecode, which is
// the idiomatic-Go shape the rest of the fabric already uses for
// "check, then act" (cf. sim.Port.CanSend before sim.Port.Send).
type Resources struct {
	// Ports lists every egress the command list intends to Send on. Each
	// must report CanSend() == true.
	Ports []sim.Port

	// Credits lists every CreditCounter the command list intends to
	// Debit. Each must be non-empty.
	Credits []Debitable

	// Tables lists every keyed table the command list intends to Insert
	// into. Each must report room (Full() == false).
	Tables []Fittable
}

// CreditKey names one (class, destination) credit counter: the unit the
// NOC emission path debits when it sends and replenishes once the NOC
// has actually transferred the message toward that destination.
type CreditKey struct {
	Class Class
	Dest  sim.RemotePort
}

// Debitable is the subset of primitives.CreditCounter the interpreter
// needs; declared locally to avoid an import cycle with primitives tests
// that construct fakes.
type Debitable interface {
	Empty() bool
}

// Fittable is the subset of primitives.Table the interpreter needs to
// know whether an Insert would succeed without actually performing it.
type Fittable interface {
	Full() bool
}

// Shortage names the first resource in a Resources summary that did not
// have room, so the caller can wait on exactly that thing's matching
// event instead of polling everything.
type Shortage struct {
	Port   sim.Port
	Credit Debitable
	Table  Fittable
}

// Check reports the first shortage found in r, or nil if every resource
// has room. It checks ports, then credits, then tables, in that order —
// an arbitrary but fixed precedence so diagnostics are deterministic.
func (r Resources) Check() *Shortage {
	for _, p := range r.Ports {
		if p != nil && !p.CanSend() {
			return &Shortage{Port: p}
		}
	}

	for _, c := range r.Credits {
		if c != nil && c.Empty() {
			return &Shortage{Credit: c}
		}
	}

	for _, t := range r.Tables {
		if t != nil && t.Full() {
			return &Shortage{Table: t}
		}
	}

	return nil
}

// CmdList is a protocol's reaction to one message: the resources it will
// need and the effects it will have if those resources are available.
// Exec must be side-effect-free to call more than once only in the sense
// that it is never called unless Resources.Check() returned nil first —
// the interpreter guarantees at-most-one invocation per accepted message.
type CmdList struct {
	Resources Resources
	Exec      func()
}

// Run checks list's resources and, if they all have room, executes it.
// It returns the shortage found (nil on success) so the caller can block
// the right queue on the right event instead of busy-polling.
func Run(list CmdList) *Shortage {
	if shortage := list.Resources.Check(); shortage != nil {
		return shortage
	}

	list.Exec()

	return nil
}
