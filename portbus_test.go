// portbus_test.go - unit tests for the port dispatcher's range
// registration, unassigned-port default, and Inw/Outw synthesis.
package pcxt86

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePortDevice struct {
	regs [4]byte
}

func (d *fakePortDevice) Inb(port uint16) byte    { return d.regs[port&3] }
func (d *fakePortDevice) Outb(port uint16, v byte) { d.regs[port&3] = v }

func TestPortBusDispatchesRegisteredRange(t *testing.T) {
	b := NewPortBus()
	dev := &fakePortDevice{}
	b.Register(0x300, 4, dev)

	b.Outb(0x301, 0x42)
	assert.Equal(t, byte(0x42), b.Inb(0x301))
	assert.Equal(t, byte(0x42), dev.regs[1])
}

func TestPortBusUnassignedPortReadsFF(t *testing.T) {
	b := NewPortBus()
	assert.Equal(t, byte(0xFF), b.Inb(0x999))
	b.Outb(0x999, 0x42) // must not panic on a write to an unassigned port
}

func TestPortBusInwOutwLittleEndian(t *testing.T) {
	b := NewPortBus()
	dev := &fakePortDevice{}
	b.Register(0x300, 4, dev)

	b.Outw(0x300, 0xBEEF)
	assert.Equal(t, byte(0xEF), dev.regs[0])
	assert.Equal(t, byte(0xBE), dev.regs[1])
	assert.Equal(t, uint16(0xBEEF), b.Inw(0x300))
}

func TestPortBusRegisteredDevicesDoNotOverlap(t *testing.T) {
	b := NewPortBus()
	devA := &fakePortDevice{}
	devB := &fakePortDevice{}
	b.Register(0x40, 1, devA)
	b.Register(0x41, 1, devB)

	b.Outb(0x40, 0x11)
	b.Outb(0x41, 0x22)
	assert.Equal(t, byte(0x11), devA.regs[0])
	assert.Equal(t, byte(0x22), devB.regs[1])
}
