// cpu_test.go - end-to-end scenario tests (spec.md §8) plus a handful of
// unit tests for the ALU and stack primitives.
//
// Grounded on cpu_x86_test.go's plain testing.T style (load bytes at
// CS:IP into a real memory, Step, assert registers/flags) and
// hejops-gone's cpu_test.go for the testify assertion convention.
package pcxt86

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type noopIOBus struct{}

func (noopIOBus) Inb(uint16) byte   { return 0xFF }
func (noopIOBus) Inw(uint16) uint16 { return 0xFFFF }
func (noopIOBus) Outb(uint16, byte)   {}
func (noopIOBus) Outw(uint16, uint16) {}

type noopPIC struct{ pending int }

func (p *noopPIC) PendingInterrupt() int { return p.pending }

func newTestCPU() (*CPU, *SystemMemory) {
	mem := NewSystemMemory()
	cpu := NewCPU(mem, noopIOBus{}, &noopPIC{pending: -1})
	cpu.SetSeg(SegCS, 0)
	cpu.SetSeg(SegDS, 0)
	cpu.SetSeg(SegES, 0)
	cpu.SetSeg(SegSS, 0)
	cpu.SetIP(0)
	return cpu, mem
}

func loadCode(mem *SystemMemory, addr uint32, code ...byte) {
	for i, b := range code {
		mem.StoreByte(addr+uint32(i), b)
	}
}

// Scenario 1: ADD with AF and CF.
func TestScenarioAddAFCF(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x04, 0x7F) // ADD AL, 0x7F
	cpu.SetAL(0x81)

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, byte(0x00), cpu.AL())
	assert.True(t, cpu.CF())
	assert.True(t, cpu.ZF())
	assert.True(t, cpu.AF())
	assert.False(t, cpu.SF())
	assert.False(t, cpu.OF())
	assert.True(t, cpu.PF())
}

// Scenario 2: signed overflow.
func TestScenarioSignedOverflow(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x04, 0x01) // ADD AL, 0x01
	cpu.SetAL(0x7F)

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, byte(0x80), cpu.AL())
	assert.True(t, cpu.OF())
	assert.True(t, cpu.SF())
	assert.False(t, cpu.CF())
}

// Scenario 3: REP MOVSB re-enters once per outer Step call.
func TestScenarioRepMovsb(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0xF3, 0xA4) // REP MOVSB
	cpu.SetSI(0x0100)
	cpu.SetDI(0x0200)
	cpu.SetCX(4)
	for i, b := range []byte("TEST") {
		mem.StoreByte(0x0100+uint32(i), b)
	}

	for cpu.CX() != 0 {
		fault := cpu.Step()
		assert.Nil(t, fault)
	}

	assert.Equal(t, uint16(0), cpu.CX())
	assert.Equal(t, uint16(0x0104), cpu.SI())
	assert.Equal(t, uint16(0x0204), cpu.DI())
	for i := 0; i < 4; i++ {
		assert.Equal(t, "TEST"[i], mem.LoadByte(0x0200+uint32(i)))
	}
}

// Scenario 4: DIV by zero faults into vector 0.
func TestScenarioDivByZero(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0xF6, 0xF3) // DIV BL
	cpu.SetBX(0x0000)

	startCycles := cpu.Cycles()
	fault := cpu.Step()
	assert.Nil(t, fault)
	// Vector 0 lives at physical 0, where the test's own code bytes F6 F3
	// sit, so the new IP is the little-endian word 0xF3F6.
	assert.Equal(t, uint16(0xF3F6), cpu.IP())
	assert.False(t, cpu.TF())
	assert.False(t, cpu.IF())
	assert.GreaterOrEqual(t, cpu.Cycles()-startCycles, uint64(80+51))
}

// Scenario 5: 8086 PUSH SP quirk pushes the post-decrement value.
func TestScenarioPushSPQuirk(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x54) // PUSH SP
	cpu.SetSP(0x0100)

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, uint16(0x00FE), cpu.SP())
	assert.Equal(t, uint16(0x00FE), mem.LoadWord(cpu.physicalAddress(SegSS, 0x00FE)))
}

// Scenario 6: an interrupt hook can suppress dispatch entirely.
func TestScenarioInterruptHookSuppress(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0xCD, 0x10) // INT 0x10
	sp := cpu.SP()
	flags := cpu.Flags()

	cpu.SetInterruptHook(0x10, func(regs *RegisterFile) (HookAction, int) {
		return HookSuppress, 0
	})

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, uint16(2), cpu.IP())
	assert.Equal(t, sp, cpu.SP())
	assert.Equal(t, flags&0xFFD7|0xF002, cpu.Flags()&0xFFD7|0xF002)
}

func TestIncOverflowFlag(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x40) // INC AX
	cpu.SetAX(0x7FFF)

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, uint16(0x8000), cpu.AX())
	assert.True(t, cpu.OF())
}

func TestPushPopRoundTrip(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.SetSP(0x0200)
	cpu.pushWord(0xBEEF)
	v := cpu.popWord()
	assert.Equal(t, uint16(0xBEEF), v)
	assert.Equal(t, uint16(0x0200), cpu.SP())
}

func TestShiftGroupRolByteModulo8(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0xC0, 0xC0, 9) // ROL AL, 9 (Grp2 Eb,Ib; modrm 11 000 000: reg=0=ROL, rm=0=AL)
	cpu.SetAL(0x01)

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, byte(0x02), cpu.AL()) // count 9 mod 8 = 1 bit position of rotation
}

func TestDecodedOpCacheTransparency(t *testing.T) {
	cpuA, memA := newTestCPU()
	cpuB, memB := newTestCPU()
	loadCode(memA, 0, 0x04, 0x05) // ADD AL, 5
	loadCode(memB, 0, 0x04, 0x05)
	cpuA.SetAL(1)
	cpuB.SetAL(1)

	// Execute twice: the second pass hits the decoded-op cache for cpuB's
	// memory but not cpuA's, because memA's code is rewritten in between,
	// which drops its cached entry (different SystemMemory instances, same
	// code).
	cpuA.SetIP(0)
	cpuB.SetIP(0)
	assert.Nil(t, cpuA.Step())
	assert.Nil(t, cpuB.Step())
	loadCode(memA, 0, 0x04, 0x05)
	cpuA.SetIP(0)
	cpuB.SetIP(0)
	assert.Nil(t, cpuA.Step())
	assert.Nil(t, cpuB.Step())

	assert.Equal(t, cpuA.AL(), cpuB.AL())
	assert.Equal(t, cpuA.Flags(), cpuB.Flags())
}

// POP SS must block interrupt recognition for the instruction right
// after it, so the classic SS:SP atomic-reload idiom (POP SS; MOV
// SP,...) cannot be split by a hardware IRQ landing in between.
func TestPopSSBlocksInterruptForNextInstruction(t *testing.T) {
	mem := NewSystemMemory()
	pic := &noopPIC{pending: 5}
	cpu := NewCPU(mem, noopIOBus{}, pic)
	cpu.SetSeg(SegCS, 0)
	cpu.SetSeg(SegDS, 0)
	cpu.SetSeg(SegES, 0)
	cpu.SetSeg(SegSS, 0)
	cpu.SetIP(0)
	cpu.SetSP(0x200)
	mem.StoreWord(0x200, 0x1234) // value POP SS loads into SS
	loadCode(mem, 0, 0x17, 0x90) // POP SS; NOP

	cpu.setFlag(FlagIF, true)
	cpu.intsEnabled = true // simulate IF already sampled true entering this Step

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, uint16(0x1234), cpu.Seg(SegSS))
	assert.Equal(t, uint16(1), cpu.IP()) // resumed at the NOP, not the pending IRQ's vector
}

// MOV SS,Ew carries the same one-instruction interrupt block as POP SS.
func TestMovSSBlocksInterruptForNextInstruction(t *testing.T) {
	mem := NewSystemMemory()
	pic := &noopPIC{pending: 5}
	cpu := NewCPU(mem, noopIOBus{}, pic)
	cpu.SetSeg(SegCS, 0)
	cpu.SetSeg(SegDS, 0)
	cpu.SetSeg(SegES, 0)
	cpu.SetSeg(SegSS, 0)
	cpu.SetIP(0)
	cpu.SetBX(0x300)
	mem.StoreWord(0x300, 0x5678)
	loadCode(mem, 0, 0x8E, 0x17, 0x90) // MOV SS, [BX]; NOP (modrm 0x17: mod=00, reg=010 (SS), rm=111 ([BX]))

	cpu.setFlag(FlagIF, true)
	cpu.intsEnabled = true

	fault := cpu.Step()
	assert.Nil(t, fault)
	assert.Equal(t, uint16(0x5678), cpu.Seg(SegSS))
	assert.Equal(t, uint16(2), cpu.IP()) // resumed at the NOP, not the pending IRQ's vector
}
