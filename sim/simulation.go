package sim

import "fmt"

// Simulation is the top-level registry of components and their engine: the
// arena every agent, connection and port lives in. A builder elaborates a
// topology against one Simulation, then hands it to a SimSequencer to run.
type Simulation struct {
	engine     Engine
	components map[string]Component
}

// NewSimulation creates an empty Simulation backed by a fresh SerialEngine.
func NewSimulation() *Simulation {
	return &Simulation{
		engine:     NewSerialEngine(),
		components: make(map[string]Component),
	}
}

// Engine returns the simulation's event engine.
func (s *Simulation) Engine() Engine {
	return s.engine
}

// RegisterComponent adds a component to the simulation's registry. Names
// must be unique; a clash is a topology-construction mistake.
func (s *Simulation) RegisterComponent(c Component) {
	if _, found := s.components[c.Name()]; found {
		panic(fmt.Sprintf("component %s already registered", c.Name()))
	}

	s.components[c.Name()] = c
}

// GetComponentByName looks up a previously registered component.
func (s *Simulation) GetComponentByName(name string) Component {
	return s.components[name]
}

// Components returns every registered component.
func (s *Simulation) Components() []Component {
	cs := make([]Component, 0, len(s.components))
	for _, c := range s.components {
		cs = append(cs, c)
	}

	return cs
}
