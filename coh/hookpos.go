package coh

import "github.com/archsim/cohmesh/sim"

// Monitor hook positions (§6). Sinks (external to the core) register a
// sim.Hook on the agent and switch on these to build statistics or a
// verification trace; the core never depends on what a sink does with
// them.
var (
	HookPosInstallShareable = &sim.HookPos{Name: "InstallShareable"}
	HookPosInstallWriteable = &sim.HookPos{Name: "InstallWriteable"}
	HookPosLoadHit          = &sim.HookPos{Name: "LoadHit"}
	HookPosLoadMiss         = &sim.HookPos{Name: "LoadMiss"}
	HookPosStoreHit         = &sim.HookPos{Name: "StoreHit"}
	HookPosStoreMiss        = &sim.HookPos{Name: "StoreMiss"}
	HookPosInvalidateLine   = &sim.HookPos{Name: "InvalidateLine"}
	HookPosTransactionStart = &sim.HookPos{Name: "TransactionStart"}
	HookPosTransactionEnd   = &sim.HookPos{Name: "TransactionEnd"}
)
