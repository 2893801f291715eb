package sim

import "log"

// HookPosBeforeEvent marks a hook invocation right before an event is
// handled; used by tracers that need to snapshot state pre-mutation.
var HookPosBeforeEventEngine = &HookPos{Name: "Engine Before Event"}

// HookPosAfterEventEngine marks a hook invocation right after an event's
// handler returns.
var HookPosAfterEventEngine = &HookPos{Name: "Engine After Event"}

// SerialEngine runs every event on a single goroutine, in time order. It
// is the only Engine implementation the fabric needs: the kernel is
// explicitly single-threaded, and determinism depends on it.
type SerialEngine struct {
	*HookableBase

	queue      *EventQueue
	now        VTimeInSec
	paused     bool
}

// NewSerialEngine creates a SerialEngine with an empty event queue.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		HookableBase: NewHookableBase(),
		queue:        NewEventQueue(),
	}
}

// CurrentTime returns the time of the event currently being (or about to
// be) processed.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	return e.now
}

// Schedule enqueues an event. Scheduling an event strictly in the past is
// a programming error, since it could never be dispatched in time order.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.now {
		log.Panicf("cannot schedule event at %.10f, now is %.10f",
			evt.Time(), e.now)
	}

	e.queue.Push(evt)
}

// Pause stops Run after the event currently in flight finishes; used by
// test harnesses and interactive front-ends that want to single-step.
func (e *SerialEngine) Pause() {
	e.paused = true
}

// Run drains the event queue until it's empty or Pause is called,
// advancing e.now to each event's time before dispatching it.
func (e *SerialEngine) Run() error {
	e.paused = false

	for e.queue.Len() > 0 {
		if e.paused {
			return nil
		}

		evt := e.queue.Pop()
		e.now = evt.Time()

		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosBeforeEventEngine, Item: evt})

		err := evt.Handler().Handle(evt)
		if err != nil {
			return err
		}

		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosAfterEventEngine, Item: evt})
	}

	return nil
}
