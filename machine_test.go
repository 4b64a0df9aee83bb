// machine_test.go - tests for NewMachine's peripheral wiring and Run's
// context-cancellation behavior.
package pcxt86

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMachineWiresTimerToPIC(t *testing.T) {
	m := NewMachine()

	m.Ports.Outb(timerControl, 0x36) // channel 0, lo/hi, mode 3
	m.Ports.Outb(timerPort0, 0x0A)
	m.Ports.Outb(timerPort0, 0x00)

	m.AdvanceTime(10)
	assert.Equal(t, int(m.PIC.vectorBase), m.PIC.PendingInterrupt())
}

func TestNewMachineWiresUARTToPIC(t *testing.T) {
	m := NewMachine()

	m.Ports.Outb(uartIER, 0x01)
	m.UART.RouteHostKey('z')
	assert.Equal(t, int(m.PIC.vectorBase)+4, m.PIC.PendingInterrupt())
}

func TestNewMachinePICPortsRespondThroughBus(t *testing.T) {
	m := NewMachine()

	m.Ports.Outb(picDataPort, 0x3C)
	assert.Equal(t, byte(0x3C), m.Ports.Inb(picDataPort))
}

func TestMachineRunExitsOnCancelledContext(t *testing.T) {
	m := NewMachine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMachineTimeToNextEventMatchesPITFrame(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, int64(pitClockRate/60), m.TimeToNextEvent())
	assert.Equal(t, int64(pitClockRate), m.ClockRate())
}
