package coh

import "github.com/archsim/cohmesh/primitives"

// Pools bundles one primitives.Pool per message class that's hot enough
// on the request/response path to be worth recycling. A producer that
// wants a pooled message calls the matching Get; a consumer that has
// fully processed (not re-emitted) a message calls Release. Messages
// that are re-emitted wrapped in a NocMsg are not released — the NocMsg
// now owns them — matching the at-most-once ownership rule in §9.
type Pools struct {
	CpuL1Cmd   *primitives.Pool[*CpuL1Cmd]
	L1CpuRsp   *primitives.Pool[*L1CpuRsp]
	L1L2Cmd    *primitives.Pool[*L1L2Cmd]
	L2L1Rsp    *primitives.Pool[*L2L1Rsp]
	Dt         *primitives.Pool[*Dt]
	DtRsp      *primitives.Pool[*DtRsp]
}

// NewPools constructs a Pools with a fresh backing sync.Pool per class.
func NewPools() *Pools {
	return &Pools{
		CpuL1Cmd: primitives.NewPool(func() *CpuL1Cmd {
			return &CpuL1Cmd{Base: Base{Class: ClassCpuL1Cmd}}
		}),
		L1CpuRsp: primitives.NewPool(func() *L1CpuRsp {
			return &L1CpuRsp{Base: Base{Class: ClassL1CpuRsp}}
		}),
		L1L2Cmd: primitives.NewPool(func() *L1L2Cmd {
			return &L1L2Cmd{Base: Base{Class: ClassL1L2Cmd}}
		}),
		L2L1Rsp: primitives.NewPool(func() *L2L1Rsp {
			return &L2L1Rsp{Base: Base{Class: ClassL2L1Rsp}}
		}),
		Dt: primitives.NewPool(func() *Dt {
			return &Dt{Base: Base{Class: ClassDt}}
		}),
		DtRsp: primitives.NewPool(func() *DtRsp {
			return &DtRsp{Base: Base{Class: ClassDtRsp}}
		}),
	}
}
