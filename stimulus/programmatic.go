package stimulus

import (
	"fmt"
	"sort"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

// Programmatic is a Context a test or front-end pushes commands into
// directly, rather than reading them from a file. It validates cpu_id
// against the set of CPUs the embedding config actually declared —
// Scenario 5 requires PushStimulus to raise a configuration error for an
// out-of-range id, not to silently accept it.
type Programmatic struct {
	validCPUs map[int]bool
	queues    map[int][]Command
	cursor    sim.VTimeInSec
}

// NewProgrammatic creates a Programmatic source that will only accept
// commands for the given CPU ids.
func NewProgrammatic(cpuIDs []int) *Programmatic {
	p := &Programmatic{
		validCPUs: make(map[int]bool, len(cpuIDs)),
		queues:    make(map[int][]Command),
	}

	for _, id := range cpuIDs {
		p.validCPUs[id] = true
	}

	return p
}

// AdvanceCursor moves the source's notion of "now" forward by dt. Any
// command PushStimulus appends after this is timestamped no earlier than
// the advanced cursor, keeping the per-cpu tuple order the spec requires
// ("time monotonically non-decreasing" for a single source) even though
// Programmatic is pushed to rather than read sequentially from a file.
func (p *Programmatic) AdvanceCursor(dt sim.VTimeInSec) {
	p.cursor += dt
}

// PushStimulus appends a (cpuID, opcode, addr) command at the source's
// current cursor time. It returns a configuration error if cpuID does
// not name a configured CPU.
func (p *Programmatic) PushStimulus(cpuID int, opcode coh.CPUOp, addr cachegeom.Addr) error {
	if !p.validCPUs[cpuID] {
		return fmt.Errorf("stimulus: cpu id %d is not configured", cpuID)
	}

	cmd := Command{Time: p.cursor, CPU: cpuID, Opcode: opcode, Addr: addr}
	q := p.queues[cpuID]
	q = append(q, cmd)

	sort.SliceStable(q, func(i, j int) bool { return q[i].Time < q[j].Time })
	p.queues[cpuID] = q

	return nil
}

// Peek implements Context.
func (p *Programmatic) Peek(cpu int) (Command, bool) {
	q := p.queues[cpu]
	if len(q) == 0 {
		return Command{}, false
	}

	return q[0], true
}

// Advance implements Context.
func (p *Programmatic) Advance(cpu int) {
	q := p.queues[cpu]
	if len(q) == 0 {
		return
	}

	p.queues[cpu] = q[1:]
}
