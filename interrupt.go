// interrupt.go - interrupt/exception dispatch and the hook-interception
// protocol (spec.md §4.6).
//
// Grounded on handleInterrupt in cpu_x86.go for the push-FLAGS/push-CS/
// push-IP/clear-IF-TF/load-vector sequence. The hook-interception step
// (suppress/replace/execute verdict via a mutable RegisterFile) has no
// teacher equivalent and is new, styled after the register-array-copy
// idiom debug_cpu_x86.go's GetRegisters() uses for exposing CPU state to
// an external caller.
package pcxt86

// handleInterrupt services interrupt or exception vector, whether raised
// by an instruction (INT n/INTO/INT3, with fromInstruction=true; a
// divide-error fault, with fromInstruction=false) or at an instruction
// boundary (a hardware IRQ or the single-step trap, with
// fromInstruction=false). fromInstruction is not read. returnIP is the
// address execution would otherwise have resumed at; a hook may override
// it by mutating RegisterFile.IP.
func (c *CPU) handleInterrupt(vector int, fromInstruction bool, returnIP uint16) {
	regs := RegisterFile{
		AX: c.AX(), BX: c.BX(), CX: c.CX(), DX: c.DX(),
		SI: c.SI(), DI: c.DI(), BP: c.BP(), SP: c.SP(),
		IP:    returnIP,
		ES:    c.Seg(SegES),
		DS:    c.Seg(SegDS),
		SS:    c.Seg(SegSS),
		Flags: c.flags,
	}

	action := HookExecute
	replacement := vector
	if hook := c.hooks[vector&0xFF]; hook != nil {
		action, replacement = hook(&regs)
	}

	c.SetAX(regs.AX)
	c.SetBX(regs.BX)
	c.SetCX(regs.CX)
	c.SetDX(regs.DX)
	c.SetSI(regs.SI)
	c.SetDI(regs.DI)
	c.SetBP(regs.BP)
	c.SetSP(regs.SP)
	c.SetSeg(SegES, regs.ES)
	c.SetSeg(SegDS, regs.DS)
	c.SetSeg(SegSS, regs.SS)
	c.setFlags(regs.Flags)

	c.justDispatchedInterrupt = true

	if action == HookSuppress {
		// No vector is serviced at all: execution simply resumes at
		// (the possibly hook-rewritten) regs.IP.
		c.decode.jumpip = int32(regs.IP)
		return
	}

	if action == HookReplace {
		// Only the low 8 bits of the replacement are used (see vecAddr
		// below); an out-of-range replacement is not rejected and no
		// HookProtocolViolation fault is raised.
		vector = replacement
	}

	oldCS := c.sreg[SegCS]
	c.pushWord(c.flags)
	c.pushWord(oldCS)
	c.pushWord(regs.IP)
	c.setFlag(FlagIF, false)
	c.setFlag(FlagTF, false)

	vecAddr := uint32(vector&0xFF) * 4
	newIP := c.mem.LoadWord(vecAddr)
	newCS := c.mem.LoadWord(vecAddr + 2)
	c.SetSeg(SegCS, newCS)
	c.decode.jumpip = int32(newIP)
	c.cycl += 51
	c.trapSkipFirst = true
}

// SetInterruptHook installs or clears (nil) the hook for a given vector.
func (c *CPU) SetInterruptHook(vector int, hook InterruptHook) {
	c.hooks[vector&0xFF] = hook
}
