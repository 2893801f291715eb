package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DirectConnection", func() {
	var (
		comp *mockComponent
		conn *DirectConnection
		p1   Port
		p2   Port
	)

	BeforeEach(func() {
		comp = newMockComponent("Comp")
		conn = NewDirectConnection("Conn")
		p1 = NewPort(comp, 4, 4, "Comp.P1")
		p2 = NewPort(comp, 4, 4, "Comp.P2")
		conn.PlugIn(p1)
		conn.PlugIn(p2)
	})

	It("should panic when plugging the same port in twice", func() {
		Expect(func() { conn.PlugIn(p1) }).To(Panic())
	})

	It("should forward a message from one port's outgoing to the other's incoming", func() {
		msg := newSampleMsg()
		msg.Src = p1.AsRemote()
		msg.Dst = p2.AsRemote()

		Expect(p1.Send(msg)).To(BeNil())
		Expect(p2.PeekIncoming()).To(BeIdenticalTo(msg))
		Expect(p1.PeekOutgoing()).To(BeNil())
	})

	It("should panic if the message is addressed to an unplugged port", func() {
		msg := newSampleMsg()
		msg.Src = p1.AsRemote()
		msg.Dst = "Comp.NotHere"

		Expect(func() { p1.Send(msg) }).To(Panic())
	})

	It("should stop forwarding once the destination is full and resume on NotifyAvailable", func() {
		small := NewPort(comp, 1, 4, "Comp.Small")
		conn.PlugIn(small)

		blocker := newSampleMsg()
		Expect(small.Deliver(blocker)).To(BeNil())

		msg := newSampleMsg()
		msg.Src = p1.AsRemote()
		msg.Dst = small.AsRemote()
		Expect(p1.Send(msg)).To(BeNil())

		Expect(p1.PeekOutgoing()).To(BeIdenticalTo(msg))

		small.RetrieveIncoming()
		conn.NotifyAvailable(small)

		Expect(p1.PeekOutgoing()).To(BeNil())
		Expect(small.PeekIncoming()).To(BeIdenticalTo(msg))
	})

	It("should stop forwarding a plugged-out port", func() {
		conn.Unplug(p2)

		msg := newSampleMsg()
		msg.Src = p1.AsRemote()
		msg.Dst = p2.AsRemote()

		Expect(func() { p1.Send(msg) }).To(Panic())
	})
})
