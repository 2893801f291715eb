package sim

import (
	"errors"
	"fmt"
)

// SimSequencer drives a Simulation through its lifecycle phases:
// elaborate (done by the caller, before NewSimSequencer), drc, init, run,
// fini. Each phase after elaborate walks every registered component,
// invoking whichever optional interface it implements and skipping those
// that don't.
type SimSequencer struct {
	sim *Simulation
}

// NewSimSequencer creates a SimSequencer over an already-elaborated
// Simulation.
func NewSimSequencer(sim *Simulation) *SimSequencer {
	return &SimSequencer{sim: sim}
}

// DRC runs CheckDesignRule on every component that implements
// DRCCheckable and returns every error found, prefixed with the
// component's name. A non-empty result means Run must not be called.
func (s *SimSequencer) DRC() []error {
	var errs []error

	for _, c := range s.sim.Components() {
		checkable, ok := c.(DRCCheckable)
		if !ok {
			continue
		}

		for _, err := range checkable.CheckDesignRule() {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}

	return errs
}

// InitComponents runs Init on every component that implements
// Initializable, in registration order.
func (s *SimSequencer) InitComponents() {
	for _, c := range s.sim.Components() {
		if initable, ok := c.(Initializable); ok {
			initable.Init()
		}
	}
}

// Run performs drc, init, run and fini in order, stopping early and
// returning the DRC errors if design-rule checking fails.
func (s *SimSequencer) Run() error {
	if errs := s.DRC(); len(errs) > 0 {
		msg := "design rule check failed:\n"
		for _, err := range errs {
			msg += fmt.Sprintf("  %v\n", err)
		}

		return errors.New(msg)
	}

	s.InitComponents()

	if err := s.sim.Engine().Run(); err != nil {
		return err
	}

	s.FinalizeComponents()

	return nil
}

// FinalizeComponents runs Finalize on every component that implements
// Finalizable, in registration order.
func (s *SimSequencer) FinalizeComponents() {
	for _, c := range s.sim.Components() {
		if finalizable, ok := c.(Finalizable); ok {
			finalizable.Finalize()
		}
	}
}
