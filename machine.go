// machine.go - the top-level runner coordinating the CPU, memory, and
// peripherals into a running PC/XT (SPEC_FULL.md §7).
//
// Grounded on CPUX86Runner's Run/Execute/Stop lifecycle in
// cpu_x86_runner.go, replacing its raw goroutine-plus-channel shutdown
// dance with golang.org/x/sync/errgroup and context.Context, and
// replacing its free-running "Step until halted" loop with RunSlice
// calls driven by Machine's own Scheduler implementation, so a
// cancelled context can interrupt execution between slices rather than
// only at instruction granularity.
package pcxt86

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// pitClockRate is the 8253's fixed input clock on a PC/XT, in Hz.
const pitClockRate = 1193182

// Machine owns a CPU and the peripherals wired to it, and drives the
// CPU's execution loop as its own Scheduler: each period is one video
// frame's worth of PIT ticks, after which pending IRQs are latched and
// the timer is advanced.
type Machine struct {
	CPU   *CPU
	Mem   *SystemMemory
	Ports *PortBus
	PIC   *PIC
	Timer *Timer
	UART  *UART

	ticksPerPeriod int64
}

// NewMachine assembles a complete PC/XT: CPU, 1 MiB memory, the PIC, an
// 8253 timer wired to IRQ0, and an 8250 UART wired to IRQ4 for the
// console, all multiplexed onto one PortBus.
func NewMachine() *Machine {
	pic := NewPIC()
	timer := NewTimer(pic)
	uart := NewUART(pic)
	ports := NewPortBus()
	ports.Register(picCommandPort, 1, pic)
	ports.Register(picDataPort, 1, pic)
	ports.Register(timerPort0, 4, timer)
	ports.Register(uartBase, 8, uart)

	mem := NewSystemMemory()
	cpu := NewCPU(mem, ports, pic)

	return &Machine{
		CPU:            cpu,
		Mem:            mem,
		Ports:          ports,
		PIC:            pic,
		Timer:          timer,
		UART:           uart,
		ticksPerPeriod: pitClockRate / 60, // one video frame's worth of PIT ticks
	}
}

// TimeToNextEvent, AdvanceTime, and ClockRate implement Scheduler: the
// CPU core is given Machine itself, so RunSlice's cycle budget tracks
// one period (ticksPerPeriod, a video frame's worth of PIT ticks) per
// call.
func (m *Machine) TimeToNextEvent() int64 { return m.ticksPerPeriod }

func (m *Machine) AdvanceTime(ticks int64) {
	m.Timer.Advance(ticks)
}

func (m *Machine) ClockRate() int64 { return pitClockRate }

// Run drives the machine until ctx is cancelled or the CPU faults,
// checking for cancellation between each RunSlice period so a faulted
// or hung guest program cannot block shutdown.
func (m *Machine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if fault := m.CPU.RunSlice(m); fault != nil {
				return fault
			}
		}
	})
	return g.Wait()
}
