// cpu.go - 8086/8088 register file and core CPU state.
//
// Grounded on cpu_x86.go (getReg8/16, getFlag/setFlag, CF/ZF/..., parity)
// from the teacher, narrowed from its 32-bit EAX-family register set to
// the 8086's 16-bit-only general and segment registers and the FLAGS
// normalization spec.md §3 requires.
package pcxt86

import "math/bits"

// General register indices, matching the 8086 ModR/M encoding order.
const (
	RegAX = 0
	RegCX = 1
	RegDX = 2
	RegBX = 3
	RegSP = 4
	RegBP = 5
	RegSI = 6
	RegDI = 7
)

// Segment register indices.
const (
	SegES = 0
	SegCS = 1
	SegSS = 2
	SegDS = 3
)

// FLAGS bit positions.
const (
	FlagCF = 1 << 0
	FlagPF = 1 << 2
	FlagAF = 1 << 4
	FlagZF = 1 << 6
	FlagSF = 1 << 7
	FlagTF = 1 << 8
	FlagIF = 1 << 9
	FlagDF = 1 << 10
	FlagOF = 1 << 11
)

// flagsAndMask and flagsOrMask implement spec.md §3's normalization:
// FLAGS is always (value & 0xFFD7) | 0xF002 on write.
const (
	flagsAndMask = 0xFFD7
	flagsOrMask  = 0xF002
)

// CPU holds the architectural state of one 8086/8088. It is the
// spec's "core": registers, transient decode state, control state. All
// external collaborators (memory, ports, interrupt controller,
// scheduler) are supplied through interfaces at construction time.
type CPU struct {
	reg    [8]uint16 // AX,CX,DX,BX,SP,BP,SI,DI
	sreg   [4]uint16 // ES,CS,SS,DS
	ip     uint16
	flags  uint16
	csbase uint32 // CS << 4, cached at every instruction boundary

	halted bool

	// intsEnabled/trapEnabled are shadows of IF/TF sampled at the start
	// of the instruction currently executing, per spec.md §3.
	intsEnabled bool
	trapEnabled bool

	// trapSkipFirst suppresses the TF-driven INT 1 at the boundary of the
	// Step in which handleInterrupt entered a handler. Only handleInterrupt
	// sets it, and every Step clears it at its end; the one-instruction
	// delay after POPF/IRET newly sets TF comes from trapEnabled instead.
	trapSkipFirst bool

	// blockNextInterrupt suppresses the boundary IRQ check at the end of
	// the Step that executed POP SS or MOV SS,Ew, so the following
	// instruction (typically a load of SP) executes before any pending
	// hardware interrupt is recognized: the classic SS:SP atomic-load
	// idiom depends on the pair never being split (spec.md §4.5, §5).
	blockNextInterrupt bool

	// justDispatchedInterrupt suppresses Step's own boundary trap/IRQ
	// check for the Step call in which a software interrupt (or a
	// synchronous fault such as divide-by-zero) was already dispatched,
	// so one Step never stacks two interrupt entries.
	justDispatchedInterrupt bool

	// reschedule is set by flushIOCycles or through SetReschedule (the
	// debugger's trace hook uses it) to request the loop return at the
	// next instruction boundary. Read at every loop iteration. It is a
	// plain bool (not atomic.Bool), and nothing in this package guards it:
	// setting it from a goroutine other than the one running RunSlice is a
	// data race. machine.go touches the CPU only from its one loop
	// goroutine.
	reschedule bool

	decode decodeState

	cycl            uint64
	leftCycleFrags  int64
	cyclesPerSecond int64

	mem   Memory
	io    IOBus
	pic   InterruptController
	sched Scheduler // optional; set via SetScheduler, consulted only to flush I/O timing

	hooks     [256]InterruptHook
	traceHook func(c *CPU)

	opTable [256]func(*CPU)

	// fault is set by raiseFault when an opcode handler hits a
	// non-recoverable condition (an unassigned opcode). opTable entries have
	// signature func(*CPU) with no error return, so Step (dispatch.go)
	// checks this field after every dispatch instead.
	fault *CPUFault
}

// raiseFault records a non-recoverable fault for Step to pick up. Opcode
// handlers return immediately after calling this.
func (c *CPU) raiseFault(reason FaultReason, message string) {
	c.fault = c.newFault(reason, message)
}

// decodeState is the transient per-instruction decode scratchpad
// (spec.md §3's "Transient decode state"). Field names are kept close to
// spec.md's own vocabulary (nextip, jumpip, insnprf, insnseg, modrm,
// insnreg) for traceability even though the resolved operand itself is
// the tagged Operand variant, not a packed insnaddr.
type decodeState struct {
	nextip    uint16
	jumpip    int32  // -1 or target IP
	insnprf   int32  // -1, or 0xF2 (REPNZ) / 0xF3 (REP)
	insnseg   int32  // -1, or a segment index override
	insnStart uint16 // IP at which this instruction (incl. prefixes) began; a string op re-arms a REP iteration by setting jumpip back to this

	opcode byte
	modrm  byte
	reg3   int // insnreg: ModR/M reg field, bits 3..5

	operand Operand // resolved rm operand (insnaddr equivalent)
}

const defaultCyclesPerSecond = 4772700

// NewCPU constructs a CPU wired to the given Memory, IOBus, and
// InterruptController. Reset() is called once to establish the §6
// power-on register state.
func NewCPU(mem Memory, io IOBus, pic InterruptController) *CPU {
	c := &CPU{mem: mem, io: io, pic: pic, cyclesPerSecond: defaultCyclesPerSecond}
	c.initOpTable()
	c.Reset()
	return c
}

// Reset restores the spec.md §6 "Initial state on reset": general
// registers, DS, ES, SS, IP cleared; CS=0xF000; IP=0xFFF0; FLAGS=0xF002;
// all hooks cleared; halted=false; cycl=leftCycleFrags=0.
func (c *CPU) Reset() {
	c.reg = [8]uint16{}
	c.sreg[SegDS] = 0
	c.sreg[SegES] = 0
	c.sreg[SegSS] = 0
	c.sreg[SegCS] = 0xF000
	c.ip = 0xFFF0
	c.flags = 0xF002
	c.csbase = uint32(c.sreg[SegCS]) << 4
	c.halted = false
	c.cycl = 0
	c.leftCycleFrags = 0
	c.hooks = [256]InterruptHook{}
	c.traceHook = nil
	c.decode = decodeState{jumpip: -1, insnprf: -1, insnseg: -1}
}

// SetCyclesPerSecond validates and applies the clock rate, per spec.md
// §7's configuration-error rule: values outside (0, 4e9] fail immediately.
func (c *CPU) SetCyclesPerSecond(v int64) error {
	if v <= 0 || v > 4_000_000_000 {
		return &CPUFault{Reason: ConfigError, Message: "cycles per second out of range (0, 4e9]"}
	}
	c.cyclesPerSecond = v
	return nil
}

// SetScheduler attaches the Scheduler the execution loop drives
// (execute.go). I/O port accesses flush pending cycles to it so devices
// observe accurate timing (spec.md §6); a nil scheduler, the default,
// makes flushIOCycles a no-op for CPU-only unit tests.
func (c *CPU) SetScheduler(s Scheduler) { c.sched = s }

func (c *CPU) Halted() bool { return c.halted }
func (c *CPU) IP() uint16   { return c.ip }
func (c *CPU) SetIP(v uint16) {
	c.ip = v
}
func (c *CPU) Flags() uint16 { return c.flags }
func (c *CPU) Cycles() uint64 { return c.cycl }

func (c *CPU) SetReschedule()     { c.reschedule = true }
func (c *CPU) Reschedule() bool   { return c.reschedule }

// --- General register access ---

func (c *CPU) reg16(index int) uint16 { return c.reg[index&7] }
func (c *CPU) setReg16(index int, v uint16) {
	c.reg[index&7] = v
}

// reg8 implements spec.md §3: "index r with bit 2 set selects the high
// byte of register r&3, otherwise the low byte."
func (c *CPU) reg8(index int) byte {
	base := c.reg[index&3]
	if index&4 != 0 {
		return byte(base >> 8)
	}
	return byte(base)
}

func (c *CPU) setReg8(index int, v byte) {
	r := index & 3
	if index&4 != 0 {
		c.reg[r] = (c.reg[r] & 0x00FF) | (uint16(v) << 8)
	} else {
		c.reg[r] = (c.reg[r] & 0xFF00) | uint16(v)
	}
}

func (c *CPU) AX() uint16 { return c.reg[RegAX] }
func (c *CPU) SetAX(v uint16) { c.reg[RegAX] = v }
func (c *CPU) AL() byte { return byte(c.reg[RegAX]) }
func (c *CPU) SetAL(v byte) { c.reg[RegAX] = (c.reg[RegAX] & 0xFF00) | uint16(v) }
func (c *CPU) AH() byte { return byte(c.reg[RegAX] >> 8) }
func (c *CPU) SetAH(v byte) { c.reg[RegAX] = (c.reg[RegAX] & 0x00FF) | (uint16(v) << 8) }

func (c *CPU) BX() uint16 { return c.reg[RegBX] }
func (c *CPU) SetBX(v uint16) { c.reg[RegBX] = v }
func (c *CPU) CX() uint16 { return c.reg[RegCX] }
func (c *CPU) SetCX(v uint16) { c.reg[RegCX] = v }
func (c *CPU) DX() uint16 { return c.reg[RegDX] }
func (c *CPU) SetDX(v uint16) { c.reg[RegDX] = v }
func (c *CPU) SP() uint16 { return c.reg[RegSP] }
func (c *CPU) SetSP(v uint16) { c.reg[RegSP] = v }
func (c *CPU) BP() uint16 { return c.reg[RegBP] }
func (c *CPU) SetBP(v uint16) { c.reg[RegBP] = v }
func (c *CPU) SI() uint16 { return c.reg[RegSI] }
func (c *CPU) SetSI(v uint16) { c.reg[RegSI] = v }
func (c *CPU) DI() uint16 { return c.reg[RegDI] }
func (c *CPU) SetDI(v uint16) { c.reg[RegDI] = v }

func (c *CPU) Seg(index int) uint16 { return c.sreg[index&3] }
func (c *CPU) SetSeg(index int, v uint16) {
	c.sreg[index&3] = v
	if index&3 == SegCS {
		c.csbase = uint32(v) << 4
	}
}

// --- Flags ---

func (c *CPU) setFlags(v uint16) {
	c.flags = (v & flagsAndMask) | flagsOrMask
}

func (c *CPU) setFlag(mask uint16, set bool) {
	if set {
		c.flags |= mask
	} else {
		c.flags &^= mask
	}
}

func (c *CPU) CF() bool { return c.flags&FlagCF != 0 }
func (c *CPU) PF() bool { return c.flags&FlagPF != 0 }
func (c *CPU) AF() bool { return c.flags&FlagAF != 0 }
func (c *CPU) ZF() bool { return c.flags&FlagZF != 0 }
func (c *CPU) SF() bool { return c.flags&FlagSF != 0 }
func (c *CPU) TF() bool { return c.flags&FlagTF != 0 }
func (c *CPU) IF() bool { return c.flags&FlagIF != 0 }
func (c *CPU) DF() bool { return c.flags&FlagDF != 0 }
func (c *CPU) OF() bool { return c.flags&FlagOF != 0 }

// parity reports even parity (true) of the low 8 bits, per spec.md §4.3.
func parity(v byte) bool {
	return bits.OnesCount8(v)%2 == 0
}
