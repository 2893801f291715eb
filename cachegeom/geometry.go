// Package cachegeom implements cache geometry: the address split into
// tag/set/offset and a generic set-associative tag store. It carries no
// functional data — per the simulator's non-goals, a "line" is whatever
// coherence metadata a protocol attaches, never bytes.
package cachegeom

import "fmt"

// Addr is a byte address.
type Addr uint64

// Geometry describes a sets_n x ways_n set-associative array with a
// power-of-two line size, and knows how to split an address into
// {tag, set, offset}.
type Geometry struct {
	Sets      int
	Ways      int
	LineBytes int

	setBits    uint
	offsetBits uint
}

// NewGeometry validates and constructs a Geometry. LineBytes must be a
// power of two; Sets and Ways must be positive.
func NewGeometry(sets, ways, lineBytes int) (Geometry, error) {
	if sets <= 0 || ways <= 0 {
		return Geometry{}, fmt.Errorf("cachegeom: sets and ways must be positive, got sets=%d ways=%d", sets, ways)
	}

	if lineBytes <= 0 || lineBytes&(lineBytes-1) != 0 {
		return Geometry{}, fmt.Errorf("cachegeom: line_bytes_n must be a power of two, got %d", lineBytes)
	}

	if sets&(sets-1) != 0 {
		return Geometry{}, fmt.Errorf("cachegeom: sets_n must be a power of two, got %d", sets)
	}

	g := Geometry{Sets: sets, Ways: ways, LineBytes: lineBytes}
	g.offsetBits = bitsFor(lineBytes)
	g.setBits = bitsFor(sets)

	return g, nil
}

func bitsFor(n int) uint {
	bits := uint(0)
	for (1 << bits) < n {
		bits++
	}

	return bits
}

// Tag returns the tag portion of addr: everything above the set and
// offset bits.
func (g Geometry) Tag(addr Addr) uint64 {
	return uint64(addr) >> (g.setBits + g.offsetBits)
}

// Set returns which set addr maps to.
func (g Geometry) Set(addr Addr) int {
	mask := uint64(g.Sets - 1)

	return int((uint64(addr) >> g.offsetBits) & mask)
}

// Offset returns the byte offset of addr within its line.
func (g Geometry) Offset(addr Addr) uint64 {
	mask := uint64(g.LineBytes - 1)

	return uint64(addr) & mask
}

// LineAddr returns the line-aligned base address of addr, i.e. addr with
// its offset bits cleared.
func (g Geometry) LineAddr(addr Addr) Addr {
	return Addr(uint64(addr) &^ uint64(g.LineBytes-1))
}

// Split returns {tag, set, offset} for addr in one call.
func (g Geometry) Split(addr Addr) (tag uint64, set int, offset uint64) {
	return g.Tag(addr), g.Set(addr), g.Offset(addr)
}
