// memory.go - the flat 1 MiB address space: RAM, the dirty-tracked
// mapped region, and read-only ROM (spec.md §3, §6).
//
// Grounded on SystemBus in memory_bus.go: little-endian word access via
// encoding/binary and a page-keyed map are kept, but the region/mapping
// model itself is replaced with spec.md §3's fixed three-way split
// (RAM/mapped-dirty/ROM) in place of the teacher's registrable IORegion
// callback table, since this module routes device I/O through IOBus
// (bus.go) rather than memory-mapped callbacks.
package pcxt86

import "encoding/binary"

const (
	memSize      = 1 << 20
	ramEnd       = 0xA0000
	mappedEnd    = 0xF0000
	pageSize     = 256
	pageCount    = memSize / pageSize
)

// SystemMemory implements the Memory interface (bus.go) for a PC/XT's
// 1 MiB linear space: RAM below 0xA0000, a dirty-bit-tracked mapped
// region (video/adapter RAM) from 0xA0000 to 0xF0000, and ROM above that
// (writes silently dropped, matching real hardware's read-only decode).
type SystemMemory struct {
	bytes [memSize]byte
	dirty [pageCount]bool

	opCache map[uint32]*decodedOp
}

func NewSystemMemory() *SystemMemory {
	return &SystemMemory{opCache: make(map[uint32]*decodedOp)}
}

func (m *SystemMemory) LoadByte(addr uint32) byte {
	return m.bytes[addr&(memSize-1)]
}

func (m *SystemMemory) LoadWord(addr uint32) uint16 {
	a := addr & (memSize - 1)
	if a == memSize-1 {
		return uint16(m.bytes[a]) | uint16(m.bytes[0])<<8
	}
	return binary.LittleEndian.Uint16(m.bytes[a : a+2])
}

func (m *SystemMemory) StoreByte(addr uint32, v byte) {
	a := addr & (memSize - 1)
	if a >= mappedEnd {
		return // ROM: writes dropped
	}
	m.bytes[a] = v
	m.invalidate(a)
	if a >= ramEnd {
		m.dirty[a/pageSize] = true
	}
}

// StoreWord is always split into two StoreByte calls rather than a
// single little-endian word write: a word starting at mappedEnd-1 (or
// at ramEnd-1) straddles a boundary that StoreByte alone enforces, so
// splitting keeps the high byte's ROM-drop and dirty-marking decisions
// independent of the low byte's.
func (m *SystemMemory) StoreWord(addr uint32, v uint16) {
	a := addr & (memSize - 1)
	m.StoreByte(a, byte(v))
	m.StoreByte((a+1)&(memSize-1), byte(v>>8))
}

// LoadOp/StoreOp back the decoded-operation cache (spec.md §4.9). A slot
// is never allocated at or above ramEnd: code in the mapped or ROM
// regions is not something a PC/XT program legitimately executes from,
// and it sidesteps the invalidation question spec.md §9 raises for that
// boundary entirely.
func (m *SystemMemory) LoadOp(addr uint32) (*decodedOp, bool) {
	if addr >= ramEnd {
		return nil, false
	}
	op, ok := m.opCache[addr]
	return op, ok
}

func (m *SystemMemory) StoreOp(addr uint32, op *decodedOp) {
	if addr >= ramEnd {
		return
	}
	m.opCache[addr] = op
}

func (m *SystemMemory) invalidate(addr uint32) {
	if len(m.opCache) == 0 {
		return
	}
	delete(m.opCache, addr)
}

// ClearDirty clears the dirty bit for the 256-byte page containing addr.
// Resolved open question (DESIGN.md): the CPU/memory never calls this
// itself; a consumer such as display refresh logic calls it after
// consuming the dirty state.
func (m *SystemMemory) ClearDirty(page uint32) {
	m.dirty[(page/pageSize)%pageCount] = false
}

// Dirty reports whether the page containing addr has been written since
// the last ClearDirty for that page.
func (m *SystemMemory) Dirty(addr uint32) bool {
	return m.dirty[(addr/pageSize)%pageCount]
}

// LoadROM copies data into the ROM region starting at addr, bypassing
// the write-is-dropped policy (how a BIOS image is actually installed).
func (m *SystemMemory) LoadROM(addr uint32, data []byte) {
	copy(m.bytes[addr&(memSize-1):], data)
}
