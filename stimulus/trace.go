package stimulus

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/sim"
)

// Trace reads the whitespace-separated text format described in §6: one
// "time cpu_id opcode addr" tuple per line, time monotonically
// non-decreasing.
type Trace struct {
	queues map[int][]Command
}

// NewTraceFromReader parses r into a Trace. Opcode must be "Load" or
// "Store" (case-insensitive); addr accepts the standard Go integer
// literal forms, including a leading "0x".
func NewTraceFromReader(r io.Reader) (*Trace, error) {
	t := &Trace{queues: make(map[int][]Command)}

	scanner := bufio.NewScanner(r)
	lastTime := sim.VTimeInSec(-1)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("stimulus: trace line %d: expected 4 fields, got %d", lineNo, len(fields))
		}

		timeNs, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("stimulus: trace line %d: bad time %q: %w", lineNo, fields[0], err)
		}

		cpu, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("stimulus: trace line %d: bad cpu id %q: %w", lineNo, fields[1], err)
		}

		opcode, err := parseOpcode(fields[2])
		if err != nil {
			return nil, fmt.Errorf("stimulus: trace line %d: %w", lineNo, err)
		}

		addr, err := strconv.ParseUint(fields[3], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("stimulus: trace line %d: bad addr %q: %w", lineNo, fields[3], err)
		}

		t0 := sim.VTimeInSec(timeNs)
		if t0 < lastTime {
			return nil, fmt.Errorf("stimulus: trace line %d: time %v precedes previous time %v", lineNo, t0, lastTime)
		}

		lastTime = t0

		t.queues[cpu] = append(t.queues[cpu], Command{
			Time:   t0,
			CPU:    cpu,
			Opcode: opcode,
			Addr:   cachegeom.Addr(addr),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("stimulus: reading trace: %w", err)
	}

	return t, nil
}

func parseOpcode(s string) (coh.CPUOp, error) {
	switch strings.ToLower(s) {
	case "load":
		return coh.Load, nil
	case "store":
		return coh.Store, nil
	default:
		return 0, fmt.Errorf("unknown opcode %q", s)
	}
}

// Peek implements Context.
func (t *Trace) Peek(cpu int) (Command, bool) {
	q := t.queues[cpu]
	if len(q) == 0 {
		return Command{}, false
	}

	return q[0], true
}

// Advance implements Context.
func (t *Trace) Advance(cpu int) {
	q := t.queues[cpu]
	if len(q) == 0 {
		return
	}

	t.queues[cpu] = q[1:]
}
