// opcache.go - the decoded-operation cache (spec.md §4.9).
//
// New; grounded on the "index structured per-address data by physical
// address" shape of SystemBus's `mapping map[uint32][]IORegion` in
// memory_bus.go, applied here to decode memoization instead of I/O
// region lookup. Scoped to what dispatch.go's Step owns generically:
// the prefix-accumulation + opcode-byte stage, not per-instruction
// ModR/M/displacement/immediate decoding (those are fetched fresh by
// each opcode handler regardless, so caching them would require plumbing
// cache awareness into every handler for a cold-path saving). A hit
// lets Step skip re-walking the prefix bytes one at a time.
//
// Resolves spec.md §9's open question about cache invalidation above the
// mapped-region boundary: a concrete Memory (memory.go) never allocates a
// cache slot for an address at or above 0xA0000, so there is nothing
// there to invalidate — code never executes out of the mapped-I/O or ROM
// regions in this emulation.
package pcxt86

// decodedOp caches the result of walking an instruction's prefix bytes:
// the final opcode byte, the REP/segment-override prefixes seen, and the
// total byte length from the instruction's first byte through the
// opcode (so nextip can be recomputed without re-fetching).
type decodedOp struct {
	opcode  byte
	insnprf int32
	insnseg int32
	length  uint16
}
