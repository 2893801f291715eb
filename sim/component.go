package sim

import (
	"fmt"
	"os"
	"sort"
)

// Named is anything with a stable, human-readable name.
type Named interface {
	Name() string
}

// A Component is an element of the simulated system: an agent, a
// connection, anything that owns ports and reacts to events.
type Component interface {
	Named
	Handler
	Hookable

	AddPort(name string, port Port)
	GetPortByName(name string) Port
	Ports() []Port

	NotifyRecv(port Port)
	NotifyPortFree(port Port)
}

// ComponentBase implements the bookkeeping every Component needs.
type ComponentBase struct {
	*HookableBase

	name  string
	ports map[string]Port
}

// NewComponentBase creates a ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	return &ComponentBase{
		HookableBase: NewHookableBase(),
		name:         name,
		ports:        make(map[string]Port),
	}
}

// Name returns the component's name.
func (c *ComponentBase) Name() string {
	return c.name
}

// AddPort registers a port under the component.
func (c *ComponentBase) AddPort(name string, port Port) {
	if _, found := c.ports[name]; found {
		panic("port " + name + " already exists on " + c.name)
	}

	c.ports[name] = port
}

// GetPortByName returns a previously added port, panicking if it isn't
// found: a missing wire is a design-rule-check failure, not a runtime
// condition to recover from.
func (c *ComponentBase) GetPortByName(name string) Port {
	port, found := c.ports[name]
	if !found {
		msg := fmt.Sprintf("port %s is not available on component %s.\n"+
			"available ports:\n", name, c.name)
		for n := range c.ports {
			msg += fmt.Sprintf("\t%s\n", n)
		}

		fmt.Fprint(os.Stderr, msg)
		panic("port not found")
	}

	return port
}

// Ports returns every port owned by the component, in a stable
// (name-sorted) order.
func (c *ComponentBase) Ports() []Port {
	names := make([]string, 0, len(c.ports))
	for n := range c.ports {
		names = append(names, n)
	}

	sort.Strings(names)

	ports := make([]Port, 0, len(names))
	for _, n := range names {
		ports = append(ports, c.ports[n])
	}

	return ports
}
