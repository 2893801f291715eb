// Package noc implements the network-on-chip: a credited ingress per
// connected agent plus a demultiplexing process. It models no real
// topology (§1 non-goals) — every agent's egress into the fabric lands
// on one ingress port of the noc.Comp, which unwraps the coh.NocMsg
// envelope and hands the payload straight to the destination agent's
// own NOC-facing ingress port.
package noc

import (
	"fmt"
	"log"

	"github.com/archsim/cohmesh/coh"
	"github.com/archsim/cohmesh/primitives"
	"github.com/archsim/cohmesh/sim"
)

// Comp is the NOC agent. Every connected agent gets one ingress port
// here (its outbound NocMsg queue); Routes maps an agent's published NOC
// identity to the sim.Port on which it expects delivered payloads.
type Comp struct {
	*sim.TickingComponent

	arbiter *primitives.Arbiter
	order   []sim.RemotePort
	routes  map[sim.RemotePort]sim.Port

	// onTransfer holds, per agent, the callback fired once a message that
	// agent emitted has actually been handed to its destination — the
	// event a sending agent's per-(class,dest) credit counter waits on to
	// replenish.
	onTransfer map[sim.RemotePort]func(class coh.Class, dest sim.RemotePort)
}

// NewComp creates an empty Comp; agents are attached with AddEndpoint
// during elaboration.
func NewComp(name string, engine sim.Engine, freq sim.Freq) *Comp {
	c := &Comp{
		arbiter:    primitives.NewArbiter(name + ".Arbiter"),
		routes:     make(map[sim.RemotePort]sim.Port),
		onTransfer: make(map[sim.RemotePort]func(class coh.Class, dest sim.RemotePort)),
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	return c
}

// AddEndpoint creates this agent's NOC-facing ingress port (capacity
// ingressDepth) and records where its outbound messages should be
// delivered (dest, the agent's own NOC-facing ingress port). The caller
// is responsible for wiring a sim.DirectConnection between the agent's
// NOC egress port and the returned ingress port.
func (c *Comp) AddEndpoint(agentName sim.RemotePort, ingressDepth int, dest sim.Port) sim.Port {
	portName := sim.BuildName(c.Name(), string(agentName))
	port := sim.NewPort(c, ingressDepth, ingressDepth, portName)
	c.AddPort(portName, port)
	c.order = append(c.order, agentName)
	c.routes[agentName] = dest

	return port
}

// OnTransfer registers the callback the NOC invokes immediately after it
// successfully delivers one of agentName's outbound messages to its
// destination. A sending CC or directory's per-(class,dest) credit
// counter is debited at emission and replenished here, on transfer,
// rather than waiting for the eventual protocol-level response.
func (c *Comp) OnTransfer(agentName sim.RemotePort, f func(class coh.Class, dest sim.RemotePort)) {
	c.onTransfer[agentName] = f
}

// CheckDesignRule implements sim.DRCCheckable: every attached ingress
// must have a resolved destination route, and vice versa.
func (c *Comp) CheckDesignRule() []error {
	var errs []error

	for name := range c.routes {
		if c.routes[name] == nil {
			errs = append(errs, fmt.Errorf("noc: endpoint %s has no delivery route", name))
		}
	}

	return errs
}

// ingressRequester is one attached agent's Arbiter-visible NOC ingress.
// It is blocked exactly when its head envelope's resolved destination
// cannot currently accept a delivery — a real resource shortage, so a
// fabric where every ingress is simultaneously congested now surfaces as
// primitives.DeadlockError instead of spinning forever.
type ingressRequester struct {
	port   sim.Port
	routes map[sim.RemotePort]sim.Port
}

func (r ingressRequester) HasReq() bool { return r.port.PeekIncoming() != nil }

func (r ingressRequester) Blocked() bool {
	msg := r.port.PeekIncoming()
	if msg == nil {
		return false
	}

	env, ok := msg.(*coh.NocMsg)
	if !ok {
		return false
	}

	dest, found := r.routes[env.Dest]
	if !found {
		return false
	}

	return !dest.CanDeliver()
}

// Tick arbitrates round-robin across every attached ingress, starting
// just after the previous winner (§5), and delivers the winner's head
// envelope to its resolved destination.
func (c *Comp) Tick() bool {
	if len(c.order) == 0 {
		return false
	}

	requesters := make([]primitives.Requester, len(c.order))
	for i, name := range c.order {
		requesters[i] = ingressRequester{
			port:   c.GetPortByName(sim.BuildName(c.Name(), string(name))),
			routes: c.routes,
		}
	}

	idx, err := c.arbiter.Tournament(requesters)
	if err != nil {
		log.Panicf("%v", err)
	}

	if idx < 0 {
		return false
	}

	origin := c.order[idx]
	src := c.GetPortByName(sim.BuildName(c.Name(), string(origin)))

	msg := src.PeekIncoming()
	if msg == nil {
		return false
	}

	env, ok := msg.(*coh.NocMsg)
	if !ok {
		log.Panicf("noc: %s carried a non-NocMsg payload %T", c.Name(), msg)
	}

	dest, found := c.routes[env.Dest]
	if !found {
		log.Panicf("noc: %s has no route for destination %s", c.Name(), env.Dest)
	}

	if sendErr := dest.Deliver(env.Payload); sendErr != nil {
		c.TickAfter(1)

		return false
	}

	src.RetrieveIncoming()

	if cb := c.onTransfer[origin]; cb != nil {
		class := coh.ClassNocMsg
		if cl, ok := env.Payload.(coh.Classed); ok {
			class = cl.ClassOf()
		}

		cb(class, env.Dest)
	}

	return true
}
