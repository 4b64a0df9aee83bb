// dispatch.go - the fetch/decode/execute step, prefix accumulation, the
// opcode table, and the stack primitives (spec.md §4, §4.5, §5).
//
// Grounded on Step()/initBaseOps() in cpu_x86.go: the prefix-accumulation
// loop (segment override, REP/REPNZ, LOCK) and the opcode-table dispatch
// shape are kept; the teacher's 386 opcode coverage is narrowed to the
// 8086/8088 set, and 0x60-0x6F/0x0F are wired to their real 8086
// undocumented behavior (aliases of 0x70-0x7F, and POP CS respectively)
// rather than the 386 PUSHA/two-byte-escape forms the teacher supports.
package pcxt86

import "fmt"

// pushWord/popWord are the SS-relative stack primitives spec.md §4.5
// describes. pushWord is the general form; opPushReg16 special-cases SP
// per the 8086 hardware quirk (spec.md §8 scenario 5).
func (c *CPU) pushWord(v uint16) {
	sp := c.SP() - 2
	c.SetSP(sp)
	c.mem.StoreWord(c.physicalAddress(SegSS, sp), v)
	c.cycl += 11
}

func (c *CPU) popWord() uint16 {
	sp := c.SP()
	v := c.mem.LoadWord(c.physicalAddress(SegSS, sp))
	c.SetSP(sp + 2)
	c.cycl += 10
	return v
}

// Step executes exactly one instruction: prefixes are consumed as part
// of the same step, but a re-entrant REP-prefixed string operation
// performs exactly one element per call (spec.md §4.7) by setting
// decode.jumpip back to decode.insnStart.
func (c *CPU) Step() *CPUFault {
	c.fault = nil

	if c.halted {
		iv := -1
		if c.IF() {
			iv = c.pic.PendingInterrupt()
		}
		if iv >= 0 {
			c.halted = false
			c.handleInterrupt(iv, false, c.ip)
			c.ip = uint16(c.decode.jumpip)
			c.intsEnabled = c.IF()
			c.trapEnabled = c.TF()
		} else {
			c.cycl += 2
		}
		return nil
	}

	entryIF := c.intsEnabled
	entryTF := c.trapEnabled
	c.justDispatchedInterrupt = false

	c.decode.insnStart = c.ip
	c.decode.nextip = c.ip
	c.decode.jumpip = -1
	c.decode.insnprf = -1
	c.decode.insnseg = -1

	// A repeating string operation re-enters here via jumpip pointing
	// back at insnStart, so the prefix+opcode stage runs again for every
	// element (spec.md §4.7); the decoded-operation cache (opcache.go,
	// spec.md §4.9) is what makes that cheap on a hot REP loop.
	startAddr := c.physicalAddress(SegCS, c.decode.insnStart)
	if cached, hit := c.mem.LoadOp(startAddr); hit {
		c.decode.opcode = cached.opcode
		c.decode.insnprf = cached.insnprf
		c.decode.insnseg = cached.insnseg
		c.decode.nextip = c.decode.insnStart + cached.length
	} else {
	prefixLoop:
		for {
			op := c.fetch8()
			switch op {
			case 0x26:
				c.decode.insnseg = SegES
			case 0x2E:
				c.decode.insnseg = SegCS
			case 0x36:
				c.decode.insnseg = SegSS
			case 0x3E:
				c.decode.insnseg = SegDS
			case 0xF0: // LOCK: no bus arbitration to model, just consumed
			case 0xF2, 0xF3:
				c.decode.insnprf = int32(op)
			default:
				c.decode.opcode = op
				break prefixLoop
			}
		}
		c.mem.StoreOp(startAddr, &decodedOp{
			opcode:  c.decode.opcode,
			insnprf: c.decode.insnprf,
			insnseg: c.decode.insnseg,
			length:  c.decode.nextip - c.decode.insnStart,
		})
	}

	handler := c.opTable[c.decode.opcode]
	if handler == nil {
		c.raiseFault(InvalidOpcode, fmt.Sprintf("unassigned opcode 0x%02X", c.decode.opcode))
	} else {
		handler(c)
	}

	if c.fault != nil {
		return c.fault
	}

	resumeIP := c.decode.nextip
	if c.decode.jumpip != -1 {
		resumeIP = uint16(c.decode.jumpip)
	}

	// Boundary trap/interrupt check uses the IF/TF sampled at the START
	// of the instruction that just ran, implementing the one-instruction
	// delay real hardware gives STI/POPF/IRET (spec.md §4.6's "no trap on
	// the handler's first instruction" deviation relies on the same
	// delay: handleInterrupt clears TF during entry, so entryTF is
	// already false for the handler's first Step). Skipped entirely when
	// the instruction that just ran already dispatched its own interrupt
	// (INT/INTO/a zero-divisor fault), so one Step never stacks two
	// interrupt entries. POP SS and MOV Sw,Ew (destination SS) set
	// blockNextInterrupt during handler(c) above, gating this same check
	// so the instruction immediately following it (the SP load that
	// completes the SS:SP atomic reload idiom) is never preempted by a
	// pending hardware interrupt (spec.md §4.5, §5).
	if !c.justDispatchedInterrupt {
		switch {
		case entryTF && !c.trapSkipFirst:
			c.handleInterrupt(1, false, resumeIP)
		default:
			c.decode.jumpip = int32(resumeIP)
			// The PIC is polled only when an IRQ would be serviced here,
			// since a non-negative poll result is the acknowledgment.
			if entryIF && !entryTF && !c.blockNextInterrupt {
				if irq := c.pic.PendingInterrupt(); irq >= 0 {
					c.handleInterrupt(irq, false, resumeIP)
				}
			}
		}
	}
	c.trapSkipFirst = false
	c.blockNextInterrupt = false

	c.ip = uint16(c.decode.jumpip)
	c.intsEnabled = c.IF()
	c.trapEnabled = c.TF()

	return nil
}

// condTrue evaluates one of the sixteen Jcc conditions (spec.md §4).
func (c *CPU) condTrue(cc int) bool {
	switch cc {
	case 0:
		return c.OF()
	case 1:
		return !c.OF()
	case 2:
		return c.CF()
	case 3:
		return !c.CF()
	case 4:
		return c.ZF()
	case 5:
		return !c.ZF()
	case 6:
		return c.CF() || c.ZF()
	case 7:
		return !c.CF() && !c.ZF()
	case 8:
		return c.SF()
	case 9:
		return !c.SF()
	case 10:
		return c.PF()
	case 11:
		return !c.PF()
	case 12:
		return c.SF() != c.OF()
	case 13:
		return c.SF() == c.OF()
	case 14:
		return c.ZF() || (c.SF() != c.OF())
	default: // 15
		return !c.ZF() && (c.SF() == c.OF())
	}
}

// initOpTable populates the 256-entry dispatch table with method
// expressions and small closures, per spec.md §9's design note preferring
// a direct func array over the teacher's switch-based Step().
func (c *CPU) initOpTable() {
	t := &c.opTable

	for aluop := 0; aluop < 8; aluop++ {
		aluop := aluop
		base := aluop * 8
		t[base+0] = func(c *CPU) { c.opALU(aluop, 0) }
		t[base+1] = func(c *CPU) { c.opALU(aluop, 1) }
		t[base+2] = func(c *CPU) { c.opALU(aluop, 2) }
		t[base+3] = func(c *CPU) { c.opALU(aluop, 3) }
		t[base+4] = func(c *CPU) { c.opALU(aluop, 4) }
		t[base+5] = func(c *CPU) { c.opALU(aluop, 5) }
	}

	t[0x06] = func(c *CPU) { c.opPushSeg(SegES) }
	t[0x07] = func(c *CPU) { c.opPopSeg(SegES) }
	t[0x0E] = func(c *CPU) { c.opPushSeg(SegCS) }
	t[0x0F] = func(c *CPU) { c.opPopSeg(SegCS) } // undocumented 8086 POP CS
	t[0x16] = func(c *CPU) { c.opPushSeg(SegSS) }
	t[0x17] = func(c *CPU) { c.opPopSeg(SegSS) }
	t[0x1E] = func(c *CPU) { c.opPushSeg(SegDS) }
	t[0x1F] = func(c *CPU) { c.opPopSeg(SegDS) }

	t[0x27] = (*CPU).opDAA
	t[0x2F] = (*CPU).opDAS
	t[0x37] = (*CPU).opAAA
	t[0x3F] = (*CPU).opAAS

	for r := 0; r < 8; r++ {
		r := r
		t[0x40+r] = func(c *CPU) { c.setReg16(r, c.aluInc16(c.reg16(r))) }
		t[0x48+r] = func(c *CPU) { c.setReg16(r, c.aluDec16(c.reg16(r))) }
		t[0x50+r] = func(c *CPU) { c.opPushReg16(r) }
		t[0x58+r] = func(c *CPU) { c.setReg16(r, c.popWord()) }
	}

	// 0x60-0x6F: undocumented on the 8086, aliasing 0x70-0x7F (Jcc).
	for cc := 0; cc < 16; cc++ {
		cc := cc
		t[0x60+cc] = func(c *CPU) { c.opJcc(cc) }
		t[0x70+cc] = func(c *CPU) { c.opJcc(cc) }
	}

	t[0x80] = func(c *CPU) { c.opGroup1(0x80) }
	t[0x81] = func(c *CPU) { c.opGroup1(0x81) }
	t[0x82] = func(c *CPU) { c.opGroup1(0x82) }
	t[0x83] = func(c *CPU) { c.opGroup1(0x83) }

	t[0x84] = (*CPU).opTestEbGb
	t[0x85] = (*CPU).opTestEvGv
	t[0x86] = (*CPU).opXchgEbGb
	t[0x87] = (*CPU).opXchgEvGv
	t[0x88] = (*CPU).opMovEbGb
	t[0x89] = (*CPU).opMovEvGv
	t[0x8A] = (*CPU).opMovGbEb
	t[0x8B] = (*CPU).opMovGvEv
	t[0x8C] = (*CPU).opMovEwSw
	t[0x8D] = (*CPU).opLea
	t[0x8E] = (*CPU).opMovSwEw
	t[0x8F] = (*CPU).opPopEv

	t[0x90] = func(c *CPU) {} // NOP = XCHG AX,AX
	for r := 1; r < 8; r++ {
		r := r
		t[0x90+r] = func(c *CPU) {
			ax := c.AX()
			c.SetAX(c.reg16(r))
			c.setReg16(r, ax)
		}
	}

	t[0x98] = (*CPU).opCBW
	t[0x99] = (*CPU).opCWD
	t[0x9A] = (*CPU).opCallFar
	t[0x9B] = func(c *CPU) {} // WAIT: no coprocessor to wait on
	t[0x9C] = func(c *CPU) { c.pushWord(c.flags) }
	t[0x9D] = func(c *CPU) { c.setFlags(c.popWord()) }
	t[0x9E] = (*CPU).opSAHF
	t[0x9F] = (*CPU).opLAHF

	t[0xA0] = (*CPU).opMovALMoffs
	t[0xA1] = (*CPU).opMovAXMoffs
	t[0xA2] = (*CPU).opMovMoffsAL
	t[0xA3] = (*CPU).opMovMoffsAX
	t[0xA4] = (*CPU).opMOVSB
	t[0xA5] = (*CPU).opMOVSW
	t[0xA6] = (*CPU).opCMPSB
	t[0xA7] = (*CPU).opCMPSW
	t[0xA8] = (*CPU).opTestALIb
	t[0xA9] = (*CPU).opTestAXIv
	t[0xAA] = (*CPU).opSTOSB
	t[0xAB] = (*CPU).opSTOSW
	t[0xAC] = (*CPU).opLODSB
	t[0xAD] = (*CPU).opLODSW
	t[0xAE] = (*CPU).opSCASB
	t[0xAF] = (*CPU).opSCASW

	for r := 0; r < 8; r++ {
		r := r
		t[0xB0+r] = func(c *CPU) { c.setReg8(r, c.fetch8()) }
		t[0xB8+r] = func(c *CPU) { c.setReg16(r, c.fetch16()) }
	}

	t[0xC0] = func(c *CPU) { c.opGroup2(false, false) } // Eb, Ib
	t[0xC1] = func(c *CPU) { c.opGroup2(true, false) }  // Ev, Ib
	t[0xC2] = (*CPU).opRetImm
	t[0xC3] = (*CPU).opRet
	t[0xC4] = (*CPU).opLes
	t[0xC5] = (*CPU).opLds
	t[0xC6] = (*CPU).opMovEbIb
	t[0xC7] = (*CPU).opMovEvIv
	t[0xCA] = (*CPU).opRetFarImm
	t[0xCB] = (*CPU).opRetFar
	t[0xCC] = (*CPU).opInt3
	t[0xCD] = (*CPU).opIntImm
	t[0xCE] = (*CPU).opInto
	t[0xCF] = (*CPU).opIret

	t[0xD0] = func(c *CPU) { c.opGroup2(false, true) }  // Eb, 1
	t[0xD1] = func(c *CPU) { c.opGroup2(true, true) }   // Ev, 1
	t[0xD2] = func(c *CPU) { c.opGroup2CL(false) }      // Eb, CL
	t[0xD3] = func(c *CPU) { c.opGroup2CL(true) }        // Ev, CL
	t[0xD4] = (*CPU).opAAM
	t[0xD5] = (*CPU).opAAD
	t[0xD6] = (*CPU).opSALC
	t[0xD7] = (*CPU).opXLAT
	for esc := byte(0xD8); esc <= 0xDF; esc++ {
		t[esc] = (*CPU).opEscape
	}

	t[0xE0] = (*CPU).opLoopNZ
	t[0xE1] = (*CPU).opLoopZ
	t[0xE2] = (*CPU).opLoop
	t[0xE3] = (*CPU).opJCXZ
	t[0xE4] = (*CPU).opInALIb
	t[0xE5] = (*CPU).opInAXIb
	t[0xE6] = (*CPU).opOutIbAL
	t[0xE7] = (*CPU).opOutIbAX
	t[0xE8] = (*CPU).opCallNear
	t[0xE9] = (*CPU).opJmpNear
	t[0xEA] = (*CPU).opJmpFar
	t[0xEB] = (*CPU).opJmpShort
	t[0xEC] = (*CPU).opInALDX
	t[0xED] = (*CPU).opInAXDX
	t[0xEE] = (*CPU).opOutDXAL
	t[0xEF] = (*CPU).opOutDXAX

	t[0xF4] = (*CPU).opHLT
	t[0xF5] = func(c *CPU) { c.setFlag(FlagCF, !c.CF()) } // CMC
	t[0xF6] = func(c *CPU) { c.opGroup3(false) }
	t[0xF7] = func(c *CPU) { c.opGroup3(true) }
	t[0xF8] = func(c *CPU) { c.setFlag(FlagCF, false) } // CLC
	t[0xF9] = func(c *CPU) { c.setFlag(FlagCF, true) }  // STC
	t[0xFA] = func(c *CPU) { c.setFlag(FlagIF, false) } // CLI
	t[0xFB] = func(c *CPU) { c.setFlag(FlagIF, true) } // STI: the one-instruction delay comes from entryIF in Step
	t[0xFC] = func(c *CPU) { c.setFlag(FlagDF, false) } // CLD
	t[0xFD] = func(c *CPU) { c.setFlag(FlagDF, true) }  // STD
	t[0xFE] = (*CPU).opGroup4
	t[0xFF] = (*CPU).opGroup5
}
