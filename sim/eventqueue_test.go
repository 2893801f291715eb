package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventQueue", func() {
	var q *EventQueue

	BeforeEach(func() {
		q = NewEventQueue()
	})

	It("should report zero length when empty", func() {
		Expect(q.Len()).To(Equal(0))
		Expect(q.Peek()).To(BeNil())
	})

	It("should pop events in time order", func() {
		h := &recordingHandler{}
		q.Push(NewEventBase(3, h))
		q.Push(NewEventBase(1, h))
		q.Push(NewEventBase(2, h))

		Expect(q.Pop().Time()).To(Equal(VTimeInSec(1)))
		Expect(q.Pop().Time()).To(Equal(VTimeInSec(2)))
		Expect(q.Pop().Time()).To(Equal(VTimeInSec(3)))
		Expect(q.Len()).To(Equal(0))
	})

	It("should break same-time ties by insertion order", func() {
		h := &recordingHandler{}
		e1 := NewEventBase(1, h)
		e2 := NewEventBase(1, h)
		q.Push(e1)
		q.Push(e2)

		Expect(q.Pop()).To(BeIdenticalTo(e1))
		Expect(q.Pop()).To(BeIdenticalTo(e2))
	})
})
