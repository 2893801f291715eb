package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHandler struct {
	handled []VTimeInSec
}

func (h *recordingHandler) Handle(e Event) error {
	h.handled = append(h.handled, e.Time())
	return nil
}

var _ = Describe("SerialEngine", func() {
	var (
		engine  *SerialEngine
		handler *recordingHandler
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
		handler = &recordingHandler{}
	})

	It("should dispatch events in time order regardless of scheduling order", func() {
		engine.Schedule(NewEventBase(3, handler))
		engine.Schedule(NewEventBase(1, handler))
		engine.Schedule(NewEventBase(2, handler))

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(handler.handled).To(Equal([]VTimeInSec{1, 2, 3}))
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(3)))
	})

	It("should break ties by insertion order", func() {
		first := &recordingHandler{}
		second := &recordingHandler{}

		engine.Schedule(NewEventBase(1, first))
		engine.Schedule(NewEventBase(1, second))

		order := []string{}
		engine.AcceptHook(&testHook{fn: func(ctx HookCtx) {
			if ctx.Pos != HookPosBeforeEventEngine {
				return
			}
			evt := ctx.Item.(Event)
			if evt.Handler() == first {
				order = append(order, "first")
			} else {
				order = append(order, "second")
			}
		}})

		Expect(engine.Run()).To(BeNil())
		Expect(order).To(Equal([]string{"first", "second"}))
	})

	It("should panic when scheduling an event in the past", func() {
		engine.Schedule(NewEventBase(5, handler))
		Expect(engine.Run()).To(BeNil())

		Expect(func() {
			engine.Schedule(NewEventBase(1, handler))
		}).To(Panic())
	})

	It("should stop early when paused", func() {
		engine.AcceptHook(&testHook{fn: func(ctx HookCtx) {
			if ctx.Pos == HookPosBeforeEventEngine {
				engine.Pause()
			}
		}})

		engine.Schedule(NewEventBase(1, handler))
		engine.Schedule(NewEventBase(2, handler))

		Expect(engine.Run()).To(BeNil())
		Expect(handler.handled).To(Equal([]VTimeInSec{1}))
	})
})
