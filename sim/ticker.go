package sim

import "sync"

// TickEvent is the generic event that drives a TickingComponent's Tick.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a TickEvent for handler at time t.
func MakeTickEvent(handler Handler, t VTimeInSec) TickEvent {
	return TickEvent{EventBase{
		id:      GetIDGenerator().Generate(),
		handler: handler,
		time:    t,
	}}
}

// A Ticker performs one arbitration round's worth of work and reports
// whether it made progress.
type Ticker interface {
	Tick() bool
}

// TickScheduler arranges for a handler's next Tick to be scheduled without
// ever double-scheduling within the same tick.
type TickScheduler struct {
	lock    sync.Mutex
	handler Handler
	Freq    Freq
	Engine  Engine

	nextTickTime VTimeInSec
}

// NewTickScheduler creates a TickScheduler for handler on engine at freq.
func NewTickScheduler(handler Handler, engine Engine, freq Freq) *TickScheduler {
	return &TickScheduler{
		handler:      handler,
		Engine:       engine,
		Freq:         freq,
		nextTickTime: -1,
	}
}

// TickNow schedules a tick at the current cycle if one isn't already
// pending.
func (t *TickScheduler) TickNow() {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.Engine.CurrentTime()
	if t.nextTickTime >= now {
		return
	}

	t.nextTickTime = t.Freq.ThisTick(now)
	t.Engine.Schedule(MakeTickEvent(t.handler, t.nextTickTime))
}

// TickLater schedules a tick at the next cycle boundary if one isn't
// already pending.
func (t *TickScheduler) TickLater() {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.Engine.CurrentTime()
	next := t.Freq.NextTick(now)
	if t.nextTickTime >= next {
		return
	}

	t.nextTickTime = next
	t.Engine.Schedule(MakeTickEvent(t.handler, t.nextTickTime))
}

// TickAfter schedules a tick n cycles after now, used for epoch-cost and
// fixed-latency delays (e.g. a memory controller's fill latency).
func (t *TickScheduler) TickAfter(cycles int) {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.Engine.CurrentTime()
	target := t.Freq.NCyclesLater(cycles, now)
	if t.nextTickTime >= target {
		return
	}

	t.nextTickTime = target
	t.Engine.Schedule(MakeTickEvent(t.handler, t.nextTickTime))
}

// TickAtTime schedules a tick at an absolute virtual time (e.g. the next
// due stimulus command's timestamp), if one isn't already pending no
// later than that.
func (t *TickScheduler) TickAtTime(at VTimeInSec) {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.Engine.CurrentTime()
	if at < now {
		at = now
	}

	target := t.Freq.ThisTick(at)
	if target < at {
		target = t.Freq.NextTick(at)
	}

	if t.nextTickTime >= target {
		return
	}

	t.nextTickTime = target
	t.Engine.Schedule(MakeTickEvent(t.handler, target))
}

// CurrentTime returns the engine's current time.
func (t *TickScheduler) CurrentTime() VTimeInSec {
	return t.Engine.CurrentTime()
}

// TickingComponent is a component whose entire behavior is one Tick
// function invoked once per cycle: the per-agent "arbitration round" of
// the coherence engine. A programmer only has to write the Ticker.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a TickingComponent.
func NewTickingComponent(
	name string, engine Engine, freq Freq, ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{
		ComponentBase: NewComponentBase(name),
	}
	tc.TickScheduler = NewTickScheduler(tc, engine, freq)
	tc.ticker = ticker

	return tc
}

// NotifyPortFree re-arms the ticker: a downstream consumer freed space, so
// whatever was blocked on it should be retried.
func (c *TickingComponent) NotifyPortFree(_ Port) {
	c.TickLater()
}

// NotifyRecv re-arms the ticker: a new message arrived to process.
func (c *TickingComponent) NotifyRecv(_ Port) {
	c.TickLater()
}

// Handle runs one Tick and, if it made progress, immediately arms the next
// one (more work may remain without waiting for an external notification).
func (c *TickingComponent) Handle(e Event) error {
	switch e.(type) {
	case TickEvent:
		if c.ticker.Tick() {
			c.TickLater()
		}
	}

	return nil
}
