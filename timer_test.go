// timer_test.go - unit tests for the 8253-equivalent PIT: channel 0's
// IRQ0 wiring, channel 1/2 inertness, and the port-level latch/lo-hi
// byte write protocol.
package pcxt86

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimerChannel0RaisesIRQ0OnUnderflow(t *testing.T) {
	pic := NewPIC()
	tm := NewTimer(pic)

	tm.Outb(timerControl, 0x36) // channel 0, lo/hi access, mode 3
	tm.Outb(timerPort0, 0x0A)   // reload lo = 10
	tm.Outb(timerPort0, 0x00)   // reload hi = 0 -> reload 10

	tm.Advance(10)
	assert.Equal(t, int(pic.vectorBase), pic.PendingInterrupt())
}

func TestTimerChannel0PeriodicReload(t *testing.T) {
	pic := NewPIC()
	tm := NewTimer(pic)
	tm.Outb(timerControl, 0x36)
	tm.Outb(timerPort0, 0x05)
	tm.Outb(timerPort0, 0x00)

	tm.Advance(5)
	assert.Equal(t, int(pic.vectorBase), pic.PendingInterrupt())
	pic.Outb(picCommandPort, 0x20) // EOI so the next underflow can deliver again

	tm.Advance(5)
	assert.Equal(t, int(pic.vectorBase), pic.PendingInterrupt())
}

// Channels 1 and 2 (DRAM refresh, PC speaker) count down like channel 0
// but never raise an interrupt: nothing observes them.
func TestTimerChannel1And2AreInert(t *testing.T) {
	pic := NewPIC()
	tm := NewTimer(pic)

	tm.Outb(timerControl, 0x76) // channel 1, lo/hi, mode 3
	tm.Outb(timerPort1, 0x04)
	tm.Outb(timerPort1, 0x00)

	tm.Outb(timerControl, 0xB6) // channel 2, lo/hi, mode 3
	tm.Outb(timerPort2, 0x04)
	tm.Outb(timerPort2, 0x00)

	tm.Advance(100)
	assert.Equal(t, -1, pic.PendingInterrupt())
}

func TestTimerReloadOfZeroMeans65536(t *testing.T) {
	pic := NewPIC()
	tm := NewTimer(pic)
	tm.Outb(timerControl, 0x36)
	tm.Outb(timerPort0, 0x00)
	tm.Outb(timerPort0, 0x00) // reload 0 -> 65536

	tm.Advance(65535)
	assert.Equal(t, -1, pic.PendingInterrupt())
	tm.Advance(1)
	assert.Equal(t, int(pic.vectorBase), pic.PendingInterrupt())
}

func TestTimerLatchCommandFreezesReadValue(t *testing.T) {
	pic := NewPIC()
	tm := NewTimer(pic)
	tm.Outb(timerControl, 0x36)
	tm.Outb(timerPort0, 0x64) // reload lo = 100
	tm.Outb(timerPort0, 0x00)

	tm.Outb(timerControl, 0x00) // latch channel 0
	tm.Advance(10)               // counter moves, latch should not
	lo := tm.Inb(timerPort0)
	hi := tm.Inb(timerPort0)
	assert.Equal(t, uint16(100), uint16(lo)|uint16(hi)<<8)
}
