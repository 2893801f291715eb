// Package stimulus implements the two concrete Stimulus readers named in
// §6: a Programmatic source a test or front-end can push commands into,
// and a Trace source that parses the whitespace-separated text format.
// The stimulus *readers* are named an out-of-scope external collaborator
// by §1, but cpuagent.Comp needs at least one concrete Context to be
// exercised end-to-end, so both are shipped here as minimal, literal
// readings of §6's contract.
package stimulus

import (
	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

// Command is one (time, cpu, opcode, addr) tuple.
type Command struct {
	Time   sim.VTimeInSec
	CPU    int
	Opcode coh.CPUOp
	Addr   cachegeom.Addr
}

// Context is the bounded view a cpuagent.Comp polls: the head command for
// one CPU, and a way to consume it once issued.
type Context interface {
	// Peek returns the head command for cpu without consuming it. ok is
	// false if no command remains for that cpu.
	Peek(cpu int) (Command, bool)

	// Advance consumes the head command for cpu; it must only be called
	// right after a Peek that returned ok == true for the same command.
	Advance(cpu int)
}
