// Package protocol defines the capability every coherence protocol
// implementation must expose to the SoC builder — one factory per agent
// kind — and a registry that resolves a configured protocol name
// (§6 "Protocol registry") to a concrete Builder. It is the redesign of
// the source's virtual apply/evict/construct_line hierarchy: instead of
// a base class every protocol subclasses, a protocol is a value that
// implements this interface and is registered by name, exactly as §9
// calls for ("an explicit registry value passed through configuration,
// not process-wide mutable state").
package protocol

import (
	"fmt"

	"github.com/archsim/cohmesh/cachegeom"
	"github.com/archsim/cohmesh/ccagent"
	"github.com/archsim/cohmesh/config"
	"github.com/archsim/cohmesh/sim"
)

// Builder constructs one agent of each kind for a protocol. Agents are
// returned as sim.Component because that's all the SoC elaboration phase
// needs: it wires ports by name via GetPortByName and registers the
// result with the Simulation. Destination ports are threaded in at
// construction time rather than patched in afterward, since every agent
// in this fabric resolves its downstream neighbor once, in its
// constructor, exactly as the source's own agents do.
//
// CreateL1's onEvictDirty callback is the cluster's L1-to-L2 back-door
// dirty-eviction notify; the SoC builder supplies a closure over the
// concrete L2 it just built. CreateDir returns two components, since a
// directory and its co-located last-level cache tick independently and
// register with the simulation separately, connected only by an internal
// command/response pair of ports.
type Builder interface {
	CreateL1(
		name string, engine sim.Engine, freq sim.Freq, cfg config.L1CacheAgentConfig,
		l2Dst sim.RemotePort, onEvictDirty func(cachegeom.Addr),
	) sim.Component
	CreateL2(
		name string, engine sim.Engine, freq sim.Freq, cfg config.L2CacheAgentConfig, numL1 int,
		ccDst sim.RemotePort,
	) sim.Component
	CreateCC(
		name string, engine sim.Engine, freq sim.Freq, cfg config.CCAgentConfig, creditsPerClass int,
		nocID, nocIngress sim.RemotePort, dirMapper ccagent.DirMapper, l2SnpDst sim.RemotePort,
	) sim.Component
	CreateDir(
		name string, engine sim.Engine, freq sim.Freq, cfg config.DirAgentConfig, creditsPerClass int,
		nocID, nocIngress, memDst sim.RemotePort,
	) (dir sim.Component, llc sim.Component)
}

// Registry resolves a protocol name to its Builder.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register binds name to b. Registering the same name twice is a
// programming error in the embedding program's startup code, not a
// runtime condition, so it panics.
func (r *Registry) Register(name string, b Builder) {
	if _, found := r.builders[name]; found {
		panic(fmt.Sprintf("protocol: %s already registered", name))
	}

	r.builders[name] = b
}

// Get resolves name to its Builder. An unknown name is a configuration
// error, reported to the caller of elaboration rather than panicking,
// since it originates in user-supplied configuration (§6, §7 category 1).
func (r *Registry) Get(name string) (Builder, error) {
	b, found := r.builders[name]
	if !found {
		return nil, fmt.Errorf("protocol: unknown protocol %q", name)
	}

	return b, nil
}
