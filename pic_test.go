// pic_test.go - unit tests for the 8259A-equivalent PIC's ICW/OCW
// protocol and its IRR/ISR bookkeeping.
package pcxt86

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPICInitializationSetsVectorBase(t *testing.T) {
	p := NewPIC()
	p.Outb(picCommandPort, 0x13) // ICW1
	p.Outb(picDataPort, 0x50)    // ICW2: vector base 0x50
	p.Outb(picDataPort, 0x00)    // ICW3: ignored, no slave

	p.Raise(2)
	vector := p.PendingInterrupt()
	assert.Equal(t, 0x50+2, vector)
}

func TestPICMaskSuppressesLine(t *testing.T) {
	p := NewPIC()
	p.Outb(picCommandPort, 0x13)
	p.Outb(picDataPort, 0x08)
	p.Outb(picDataPort, 0x00)

	p.Outb(picDataPort, 0x04) // OCW1: mask line 2
	p.Raise(2)
	assert.Equal(t, -1, p.PendingInterrupt())

	p.Outb(picDataPort, 0x00) // unmask everything
	assert.Equal(t, 0x08+2, p.PendingInterrupt())
}

func TestPICLowestLineWinsTies(t *testing.T) {
	p := NewPIC()
	p.Raise(3)
	p.Raise(1)
	assert.Equal(t, int(p.vectorBase)+1, p.PendingInterrupt())
	assert.Equal(t, int(p.vectorBase)+3, p.PendingInterrupt())
}

// PendingInterrupt moves the IRR bit to ISR as a side effect: calling it
// again before an EOI must not redeliver the same line.
func TestPICPendingInterruptSingleDelivery(t *testing.T) {
	p := NewPIC()
	p.Raise(0)
	assert.Equal(t, int(p.vectorBase), p.PendingInterrupt())
	assert.Equal(t, -1, p.PendingInterrupt())

	p.Outb(picCommandPort, 0x20) // OCW2: non-specific EOI
	p.Raise(0)
	assert.Equal(t, int(p.vectorBase), p.PendingInterrupt())
}

func TestPICUnmaskedReadsBackMask(t *testing.T) {
	p := NewPIC()
	p.Outb(picDataPort, 0xA5)
	assert.Equal(t, byte(0xA5), p.Inb(picDataPort))
}
