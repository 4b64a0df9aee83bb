// debug_test.go - unit tests for condition parsing and the
// breakpoint/watchpoint trace hook.
package pcxt86

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConditionRegister(t *testing.T) {
	cond, err := ParseCondition("ax==$FF")
	assert.Nil(t, err)
	assert.Equal(t, CondSourceRegister, cond.Source)
	assert.Equal(t, "AX", cond.RegName)
	assert.Equal(t, CondOpEqual, cond.Op)
	assert.Equal(t, uint64(0xFF), cond.Value)
}

func TestParseConditionMemory(t *testing.T) {
	cond, err := ParseCondition("[$7C00]!=$0")
	assert.Nil(t, err)
	assert.Equal(t, CondSourceMemory, cond.Source)
	assert.Equal(t, uint32(0x7C00), cond.MemAddr)
	assert.Equal(t, CondOpNotEqual, cond.Op)
	assert.Equal(t, uint64(0), cond.Value)
}

func TestParseConditionHitCount(t *testing.T) {
	cond, err := ParseCondition("hitcount>10")
	assert.Nil(t, err)
	assert.Equal(t, CondSourceHitCount, cond.Source)
	assert.Equal(t, CondOpGreater, cond.Op)
	assert.Equal(t, uint64(10), cond.Value)
}

func TestParseConditionDecimalValue(t *testing.T) {
	cond, err := ParseCondition("cx<=100")
	assert.Nil(t, err)
	assert.Equal(t, uint64(100), cond.Value)
}

func TestParseConditionRejectsMissingOperator(t *testing.T) {
	_, err := ParseCondition("ax 5")
	assert.NotNil(t, err)
}

// fakeScheduler grants a one-tick period at the CPU's own default clock
// rate, so RunSlice's cycle budget rounds up to 1. Instructions that
// charge no cycles (NOP, ADD AL,Ib) do not use it up, so the loop keeps
// stepping until the trace hook requests a reschedule or an executed
// instruction charges a cycle.
type fakeScheduler struct{}

func (fakeScheduler) TimeToNextEvent() int64 { return 1 }
func (fakeScheduler) AdvanceTime(int64)      {}
func (fakeScheduler) ClockRate() int64       { return defaultCyclesPerSecond }

func TestDebuggerBreakpointFiresOnMatchingAddress(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x90, 0x90) // NOP, NOP
	d := NewDebugger(cpu, mem)
	d.SetBreakpoint(0)

	assert.Nil(t, cpu.RunSlice(fakeScheduler{}))
	events := d.DrainEvents()
	assert.Len(t, events, 1)
	assert.Equal(t, uint32(0), events[0].Address)
}

func TestDebuggerConditionalBreakpointOnlyFiresWhenTrue(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x90)
	cpu.SetAX(5)
	d := NewDebugger(cpu, mem)
	cond, err := ParseCondition("ax==10")
	assert.Nil(t, err)
	d.SetConditionalBreakpoint(0, cond)

	assert.Nil(t, cpu.RunSlice(fakeScheduler{}))
	assert.Empty(t, d.DrainEvents())
}

func TestDebuggerWatchpointDetectsMemoryChange(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x04, 0x01) // ADD AL, 1
	mem.StoreByte(0x2000, 0x00)
	d := NewDebugger(cpu, mem)
	d.SetWatchpoint(0x2000)

	mem.StoreByte(0x2000, 0x7F)
	assert.Nil(t, cpu.RunSlice(fakeScheduler{}))
	events := d.DrainEvents()
	assert.Len(t, events, 1)
	assert.True(t, events[0].IsWatch)
	assert.Equal(t, uint32(0x2000), events[0].WatchAddr)
	assert.Equal(t, byte(0x00), events[0].OldValue)
	assert.Equal(t, byte(0x7F), events[0].NewValue)
}

func TestDebuggerClearBreakpointStopsFiring(t *testing.T) {
	cpu, mem := newTestCPU()
	loadCode(mem, 0, 0x90, 0x90)
	d := NewDebugger(cpu, mem)
	d.SetBreakpoint(0)
	d.ClearBreakpoint(0)

	assert.Nil(t, cpu.RunSlice(fakeScheduler{}))
	assert.Empty(t, d.DrainEvents())
}

func TestDebuggerGetRegisterKnownAndUnknown(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.SetAX(0x1234)
	d := &Debugger{cpu: cpu}

	v, ok := d.GetRegister("ax")
	assert.True(t, ok)
	assert.Equal(t, uint64(0x1234), v)

	_, ok = d.GetRegister("nope")
	assert.False(t, ok)
}
