package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleMsg struct {
	MsgMeta
}

func newSampleMsg() *sampleMsg {
	return &sampleMsg{MsgMeta: MsgMeta{ID: GetIDGenerator().Generate()}}
}

func (m *sampleMsg) Meta() *MsgMeta {
	return &m.MsgMeta
}

func (m *sampleMsg) Clone() Msg {
	c := *m
	c.ID = GetIDGenerator().Generate()

	return &c
}

// mockComponent is a hand-written fake used in place of a generated mock:
// the components under test here are small enough that a real mock
// framework would add more ceremony than it saves.
type mockComponent struct {
	*ComponentBase

	recvCount      int
	portFreeCount  int
}

func newMockComponent(name string) *mockComponent {
	return &mockComponent{ComponentBase: NewComponentBase(name)}
}

func (c *mockComponent) Handle(e Event) error { return nil }
func (c *mockComponent) NotifyRecv(_ Port)     { c.recvCount++ }
func (c *mockComponent) NotifyPortFree(_ Port) { c.portFreeCount++ }

var _ = Describe("DefaultPort", func() {
	var (
		comp *mockComponent
		conn *DirectConnection
		port Port
		dst  Port
	)

	BeforeEach(func() {
		comp = newMockComponent("Comp")
		conn = NewDirectConnection("Conn")
		port = NewPort(comp, 4, 4, "Comp.Port")
		dst = NewPort(comp, 4, 4, "Comp.DstPort")
		conn.PlugIn(port)
		conn.PlugIn(dst)
	})

	It("should return component and name", func() {
		Expect(port.Component()).To(BeIdenticalTo(comp))
		Expect(port.Name()).To(Equal("Comp.Port"))
	})

	It("should panic if port is not msg src", func() {
		msg := newSampleMsg()
		msg.Dst = dst.AsRemote()

		Expect(func() { port.Send(msg) }).To(Panic())
	})

	It("should panic if msg dst is not set", func() {
		msg := newSampleMsg()
		msg.Src = port.AsRemote()

		Expect(func() { port.Send(msg) }).To(Panic())
	})

	It("should panic if msg src is the same as dst", func() {
		msg := newSampleMsg()
		msg.Src = port.AsRemote()
		msg.Dst = port.AsRemote()

		Expect(func() { port.Send(msg) }).To(Panic())
	})

	It("should send successfully", func() {
		msg := newSampleMsg()
		msg.Src = port.AsRemote()
		msg.Dst = dst.AsRemote()

		err := port.Send(msg)

		Expect(err).To(BeNil())
	})

	It("should fail to send when outgoing buffer is full", func() {
		full := NewPort(comp, 4, 1, "Comp.FullPort")

		msg := newSampleMsg()
		msg.Src = full.AsRemote()
		msg.Dst = dst.AsRemote()

		Expect(full.Send(msg)).To(BeNil())
		Expect(full.Send(msg)).NotTo(BeNil())
	})

	It("should notify the owning component on delivery", func() {
		msg := newSampleMsg()

		err := port.Deliver(msg)

		Expect(err).To(BeNil())
		Expect(comp.recvCount).To(Equal(1))
	})

	It("should fail to deliver when incoming buffer is full", func() {
		small := NewPort(comp, 1, 4, "Comp.SmallPort")
		msg := newSampleMsg()

		Expect(small.Deliver(msg)).To(BeNil())
		Expect(small.Deliver(msg)).NotTo(BeNil())
	})

	It("should return nil when peeking or retrieving an empty buffer", func() {
		Expect(port.PeekIncoming()).To(BeNil())
		Expect(port.PeekOutgoing()).To(BeNil())
		Expect(port.RetrieveIncoming()).To(BeNil())
		Expect(port.RetrieveOutgoing()).To(BeNil())
	})

	It("should let the component retrieve a delivered message", func() {
		msg := newSampleMsg()
		Expect(port.Deliver(msg)).To(BeNil())

		Expect(port.PeekIncoming()).To(BeIdenticalTo(msg))
		Expect(port.RetrieveIncoming()).To(BeIdenticalTo(msg))
		Expect(port.RetrieveIncoming()).To(BeNil())
	})
})
