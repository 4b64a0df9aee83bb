// string.go - the MOVS/CMPS/STOS/LODS/SCAS string-operation engine with
// REP/REPE/REPNE (spec.md §4.7).
//
// Grounded on opMOVSB/opCMPSB/opSCASB/etc. in cpu_x86_ops.go, but
// rewritten from the teacher's internal `for count > 0 { ... }` batch
// loop to one element per Step call: a repeating instruction re-arms
// itself by setting decode.jumpip back to decode.insnStart, so the
// fetch/decode/execute loop in dispatch.go redecodes the same prefix +
// opcode bytes for the next element. This makes an interrupt injected
// between elements visible at the very next instruction boundary
// (spec.md §8 scenario 3), which the teacher's batch loop cannot do.
package pcxt86

// dstring runs body once, then, only if a REP/REPE/REPNE prefix is
// present, decrements CX and re-arms for another element if shouldRepeat
// reports true. body runs zero times if CX is already zero and a REP
// prefix is present (spec.md §4.7's "repeat zero times" rule).
func (c *CPU) dstring(body func(), shouldRepeat func() bool) {
	repeating := c.decode.insnprf != -1
	if repeating && c.CX() == 0 {
		return
	}
	body()
	if !repeating {
		return
	}
	cx := c.CX() - 1
	c.SetCX(cx)
	if cx != 0 && shouldRepeat() {
		c.decode.jumpip = int32(c.decode.insnStart)
	}
}

func alwaysRepeat() bool { return true }

func (c *CPU) repeatWhileZF() bool {
	if c.decode.insnprf == 0xF3 { // REPE/REPZ
		return c.ZF()
	}
	return !c.ZF() // REPNE/REPNZ
}

// stringSrcSeg resolves the (overridable) source segment used by MOVS/
// CMPS/LODS; the destination segment of MOVS/CMPS/STOS is always ES and
// cannot be overridden.
func (c *CPU) stringSrcSeg() int {
	seg := SegDS
	if c.decode.insnseg != -1 {
		seg = int(c.decode.insnseg)
		c.decode.insnseg = -1
	}
	return seg
}

func (c *CPU) stringStep() uint16 {
	if c.DF() {
		return 0xFFFF // -1
	}
	return 1
}

func (c *CPU) stringStep2() uint16 {
	if c.DF() {
		return 0xFFFE // -2
	}
	return 2
}

func (c *CPU) opMOVSB() {
	c.dstring(func() {
		src := c.physicalAddress(c.stringSrcSeg(), c.SI())
		dst := c.physicalAddress(SegES, c.DI())
		c.mem.StoreByte(dst, c.mem.LoadByte(src))
		c.SetSI(c.SI() + c.stringStep())
		c.SetDI(c.DI() + c.stringStep())
		c.cycl += 18
	}, alwaysRepeat)
}

func (c *CPU) opMOVSW() {
	c.dstring(func() {
		src := c.physicalAddress(c.stringSrcSeg(), c.SI())
		dst := c.physicalAddress(SegES, c.DI())
		c.mem.StoreWord(dst, c.mem.LoadWord(src))
		c.SetSI(c.SI() + c.stringStep2())
		c.SetDI(c.DI() + c.stringStep2())
		c.cycl += 18
	}, alwaysRepeat)
}

func (c *CPU) opSTOSB() {
	c.dstring(func() {
		dst := c.physicalAddress(SegES, c.DI())
		c.mem.StoreByte(dst, c.AL())
		c.SetDI(c.DI() + c.stringStep())
		c.cycl += 11
	}, alwaysRepeat)
}

func (c *CPU) opSTOSW() {
	c.dstring(func() {
		dst := c.physicalAddress(SegES, c.DI())
		c.mem.StoreWord(dst, c.AX())
		c.SetDI(c.DI() + c.stringStep2())
		c.cycl += 11
	}, alwaysRepeat)
}

func (c *CPU) opLODSB() {
	c.dstring(func() {
		src := c.physicalAddress(c.stringSrcSeg(), c.SI())
		c.SetAL(c.mem.LoadByte(src))
		c.SetSI(c.SI() + c.stringStep())
		c.cycl += 12
	}, alwaysRepeat)
}

func (c *CPU) opLODSW() {
	c.dstring(func() {
		src := c.physicalAddress(c.stringSrcSeg(), c.SI())
		c.SetAX(c.mem.LoadWord(src))
		c.SetSI(c.SI() + c.stringStep2())
		c.cycl += 12
	}, alwaysRepeat)
}

func (c *CPU) opCMPSB() {
	c.dstring(func() {
		src := c.physicalAddress(c.stringSrcSeg(), c.SI())
		dst := c.physicalAddress(SegES, c.DI())
		c.aluSub8(c.mem.LoadByte(src), c.mem.LoadByte(dst), false)
		c.SetSI(c.SI() + c.stringStep())
		c.SetDI(c.DI() + c.stringStep())
		c.cycl += 22
	}, c.repeatWhileZF)
}

func (c *CPU) opCMPSW() {
	c.dstring(func() {
		src := c.physicalAddress(c.stringSrcSeg(), c.SI())
		dst := c.physicalAddress(SegES, c.DI())
		c.aluSub16(c.mem.LoadWord(src), c.mem.LoadWord(dst), false)
		c.SetSI(c.SI() + c.stringStep2())
		c.SetDI(c.DI() + c.stringStep2())
		c.cycl += 22
	}, c.repeatWhileZF)
}

func (c *CPU) opSCASB() {
	c.dstring(func() {
		dst := c.physicalAddress(SegES, c.DI())
		c.aluSub8(c.AL(), c.mem.LoadByte(dst), false)
		c.SetDI(c.DI() + c.stringStep())
		c.cycl += 15
	}, c.repeatWhileZF)
}

func (c *CPU) opSCASW() {
	c.dstring(func() {
		dst := c.physicalAddress(SegES, c.DI())
		c.aluSub16(c.AX(), c.mem.LoadWord(dst), false)
		c.SetDI(c.DI() + c.stringStep2())
		c.cycl += 15
	}, c.repeatWhileZF)
}
