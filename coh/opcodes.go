package coh

// CPUOp names the CPU-facing memory operation a CpuL1Cmd carries.
type CPUOp int

// CPU-facing opcodes.
const (
	Load CPUOp = iota
	Store
)

func (o CPUOp) String() string {
	switch o {
	case Load:
		return "Load"
	case Store:
		return "Store"
	default:
		return "CPUOp(?)"
	}
}

// L1L2Op names the request an L1 issues to its L2.
type L1L2Op int

// L1-to-L2 opcodes.
const (
	L1GetS L1L2Op = iota
	L1GetE
)

func (o L1L2Op) String() string {
	switch o {
	case L1GetS:
		return "L1GetS"
	case L1GetE:
		return "L1GetE"
	default:
		return "L1L2Op(?)"
	}
}

// AceOp names an ACE master command (L2->CC) or, reused, the coherence
// command a CC issues to its directory — the spec notes CohCmd carries
// "the ACE opcode" verbatim.
type AceOp int

// ACE command opcodes.
const (
	ReadShared AceOp = iota
	ReadUnique
	CleanUnique
)

func (o AceOp) String() string {
	switch o {
	case ReadShared:
		return "ReadShared"
	case ReadUnique:
		return "ReadUnique"
	case CleanUnique:
		return "CleanUnique"
	default:
		return "AceOp(?)"
	}
}

// AceSnpOp names an ACE snoop (CC->L2) or coherence snoop (Dir->CC)
// opcode.
type AceSnpOp int

// ACE/coherence snoop opcodes.
const (
	SnpReadShared AceSnpOp = iota
	SnpReadUnique
	SnpCleanInvalid
	SnpMakeInvalid
)

func (o AceSnpOp) String() string {
	switch o {
	case SnpReadShared:
		return "ReadShared"
	case SnpReadUnique:
		return "ReadUnique"
	case SnpCleanInvalid:
		return "CleanInvalid"
	case SnpMakeInvalid:
		return "MakeInvalid"
	default:
		return "AceSnpOp(?)"
	}
}

// LLCOp names the command a directory issues to its co-located LLC.
type LLCOp int

// LLC command opcodes.
const (
	LLCFill LLCOp = iota
	LLCEvict
	LLCPutLine
)

func (o LLCOp) String() string {
	switch o {
	case LLCFill:
		return "Fill"
	case LLCEvict:
		return "Evict"
	case LLCPutLine:
		return "PutLine"
	default:
		return "LLCOp(?)"
	}
}

// LLCStatus reports the outcome of an LLCCmd.
type LLCStatus int

// LLC response statuses.
const (
	LLCOkay LLCStatus = iota
	LLCError
)

func (s LLCStatus) String() string {
	switch s {
	case LLCOkay:
		return "Okay"
	case LLCError:
		return "Error"
	default:
		return "LLCStatus(?)"
	}
}

// MemOp names a memory-controller command or response opcode.
type MemOp int

// Memory controller opcodes.
const (
	MemRead MemOp = iota
	MemWrite
	MemReadOkay
	MemWriteOkay
)

func (o MemOp) String() string {
	switch o {
	case MemRead:
		return "Read"
	case MemWrite:
		return "Write"
	case MemReadOkay:
		return "ReadOkay"
	case MemWriteOkay:
		return "WriteOkay"
	default:
		return "MemOp(?)"
	}
}
