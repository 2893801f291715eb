package monitor

import "github.com/archsim/cohmesh/soc"

// occupancyReporter is the TxnOccupancy surface a cluster cache
// controller or directory exposes, matched structurally so this package
// never has to import ccagent or diragent directly.
type occupancyReporter interface {
	TxnOccupancy() (size, capacity int)
}

// Attach builds a Recorder and wires it against every hook-firing and
// occupancy-reporting component in sys: every L1 and CPU accepts the
// Recorder as a sim.Hook (the only agents that currently invoke
// coh.HookPos* positions), and every cluster cache controller and
// directory's transaction table is registered as a polled occupancy
// source.
func Attach(sys *soc.System) *Recorder {
	r := NewRecorder()

	for _, c := range sys.L1s {
		c.AcceptHook(r)
	}

	for _, c := range sys.CPUs {
		c.AcceptHook(r)
	}

	for name, c := range sys.CCs {
		if o, ok := c.(occupancyReporter); ok {
			r.Watch(name+".CC.Txns", o.TxnOccupancy)
		}
	}

	for name, c := range sys.Dirs {
		if o, ok := c.(occupancyReporter); ok {
			r.Watch(name+".Dir.Txns", o.TxnOccupancy)
		}
	}

	return r
}
