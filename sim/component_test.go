package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ComponentBase", func() {
	var base *ComponentBase

	BeforeEach(func() {
		base = NewComponentBase("Comp")
	})

	It("should return its name", func() {
		Expect(base.Name()).To(Equal("Comp"))
	})

	It("should add and retrieve ports by name", func() {
		comp := newMockComponent("Comp")
		p := NewPort(comp, 1, 1, "Comp.P")
		base.AddPort("P", p)

		Expect(base.GetPortByName("P")).To(BeIdenticalTo(p))
	})

	It("should panic when adding a duplicate port name", func() {
		comp := newMockComponent("Comp")
		p := NewPort(comp, 1, 1, "Comp.P")
		base.AddPort("P", p)

		Expect(func() { base.AddPort("P", p) }).To(Panic())
	})

	It("should panic when looking up a port that was never added", func() {
		Expect(func() { base.GetPortByName("Nope") }).To(Panic())
	})

	It("should return ports in a stable, name-sorted order", func() {
		comp := newMockComponent("Comp")
		pb := NewPort(comp, 1, 1, "Comp.B")
		pa := NewPort(comp, 1, 1, "Comp.A")
		base.AddPort("B", pb)
		base.AddPort("A", pa)

		Expect(base.Ports()).To(Equal([]Port{pa, pb}))
	})
})
