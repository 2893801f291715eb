package sim

// Condition reports whether some state the caller cares about currently
// holds, e.g. "this buffer has room" or "this MSHR has a free entry".
type Condition func() bool

// EventOr composes several wait conditions into one: it's satisfied as
// soon as any one of them is. Because every TickingComponent's Tick
// already re-evaluates all of its middlewares' conditions from scratch
// every time it's woken by any single port event, agents rarely need this
// directly — it exists for the rarer case of a Tick that needs to block on
// a combination it doesn't already get a callback for, such as waiting on
// either a credit becoming available or a timeout.
type EventOr struct {
	conditions []Condition
}

// NewEventOr creates an EventOr over the given conditions.
func NewEventOr(conditions ...Condition) *EventOr {
	return &EventOr{conditions: conditions}
}

// Satisfied reports whether any of the composed conditions currently
// holds.
func (e *EventOr) Satisfied() bool {
	for _, c := range e.conditions {
		if c() {
			return true
		}
	}

	return false
}
