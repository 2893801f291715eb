package sim

// VTimeInSec defines the time in the simulated space, in the unit of second.
type VTimeInSec float64

// An Event is something that is going to happen at a point in simulated
// time, on the timeline of exactly one Handler.
type Event interface {
	// Time returns the time that the event should happen.
	Time() VTimeInSec

	// Handler returns the handler that should handle the event.
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary
	// events are handled after all same-time primary events are handled.
	IsSecondary() bool
}

// EventBase provides the basic fields and getters that other events embed.
type EventBase struct {
	id        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	return &EventBase{
		id:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// Time returns the time that the event is going to happen.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler that handles the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// MarkSecondary marks the event as secondary.
func (e *EventBase) MarkSecondary() {
	e.secondary = true
}

// A Handler is anything that can process an Event. An Event can only be
// scheduled by, and can only mutate the state of, its own Handler.
type Handler interface {
	Handle(e Event) error
}
