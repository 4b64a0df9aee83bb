// group1345.go - the immediate-ALU and single-operand instruction groups
// (spec.md §4.3, opcodes 0x80-0x83, 0xF6-0xF7, 0xFE-0xFF).
//
// Grounded on cpu_x86_grp.go's group dispatch tables. DIV/IDIV-by-zero
// and quotient overflow raising INT 0 is kept verbatim (already matches
// spec.md §4.3). The teacher's Group5 "undefined sub-opcode sets
// Halted = true" is replaced with the typed invalid-opcode fault spec.md
// §7 requires.
package pcxt86

// opGroup1 dispatches 0x80 (Eb,Ib), 0x81 (Ev,Iv), 0x82 (undocumented
// alias of 0x80), and 0x83 (Ev,Ib sign-extended).
func (c *CPU) opGroup1(variant byte) {
	c.fetchModRM()
	reg3 := c.decode.reg3

	switch variant {
	case 0x80, 0x82:
		rm := c.resolveRM(false)
		a := c.loadByte(rm)
		imm := c.fetch8()
		result := c.aluGroup1Op8(reg3, a, imm)
		if reg3 != 7 {
			c.storeByte(rm, result)
		}
	case 0x81:
		rm := c.resolveRM(true)
		a := c.loadWord(rm)
		imm := c.fetch16()
		result := c.aluGroup1Op16(reg3, a, imm)
		if reg3 != 7 {
			c.storeWord(rm, result)
		}
	case 0x83:
		rm := c.resolveRM(true)
		a := c.loadWord(rm)
		imm := uint16(int16(int8(c.fetch8())))
		result := c.aluGroup1Op16(reg3, a, imm)
		if reg3 != 7 {
			c.storeWord(rm, result)
		}
	}
}

// aluGroup1Op8/16 apply the reg3-selected operation (ADD/OR/ADC/SBB/
// AND/SUB/XOR/CMP). CMP (reg3==7) still runs aluSub for its flag side
// effects; the caller discards the result rather than storing it.
func (c *CPU) aluGroup1Op8(reg3 int, a, b byte) byte {
	switch reg3 {
	case 0:
		return c.aluAdd8(a, b, false)
	case 1:
		return c.aluLogic8(a | b)
	case 2:
		return c.aluAdd8(a, b, c.CF())
	case 3:
		return c.aluSub8(a, b, c.CF())
	case 4:
		return c.aluLogic8(a & b)
	case 5:
		return c.aluSub8(a, b, false)
	case 6:
		return c.aluLogic8(a ^ b)
	default: // 7: CMP
		return c.aluSub8(a, b, false)
	}
}

func (c *CPU) aluGroup1Op16(reg3 int, a, b uint16) uint16 {
	switch reg3 {
	case 0:
		return c.aluAdd16(a, b, false)
	case 1:
		return c.aluLogic16(a | b)
	case 2:
		return c.aluAdd16(a, b, c.CF())
	case 3:
		return c.aluSub16(a, b, c.CF())
	case 4:
		return c.aluLogic16(a & b)
	case 5:
		return c.aluSub16(a, b, false)
	case 6:
		return c.aluLogic16(a ^ b)
	default: // 7: CMP
		return c.aluSub16(a, b, false)
	}
}

// opGroup3 dispatches 0xF6 (Eb) and 0xF7 (Ev): TEST/NOT/NEG/MUL/IMUL/
// DIV/IDIV selected by the ModR/M reg field.
func (c *CPU) opGroup3(wide bool) {
	c.fetchModRM()
	rm := c.resolveRM(wide)
	reg3 := c.decode.reg3

	if !wide {
		c.opGroup3Byte(reg3, rm)
	} else {
		c.opGroup3Word(reg3, rm)
	}
}

func (c *CPU) opGroup3Byte(reg3 int, rm Operand) {
	switch reg3 {
	case 0, 1: // TEST Eb, Ib
		val := c.loadByte(rm)
		imm := c.fetch8()
		c.aluLogic8(val & imm)
	case 2: // NOT
		c.storeByte(rm, aluNot8(c.loadByte(rm)))
	case 3: // NEG
		c.storeByte(rm, c.aluSub8(0, c.loadByte(rm), false))
	case 4: // MUL AL, Eb
		val := c.loadByte(rm)
		result := uint16(c.AL()) * uint16(val)
		c.SetAX(result)
		c.setMulFlagsUnsigned(result>>8 != 0)
	case 5: // IMUL AL, Eb
		val := int8(c.loadByte(rm))
		result := int16(int8(c.AL())) * int16(val)
		c.SetAX(uint16(result))
		c.setMulFlagsSigned(result != int16(int8(result)))
	case 6: // DIV AX, Eb
		divisor := c.loadByte(rm)
		c.cycl += 80
		if divisor == 0 {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		dividend := c.AX()
		q := dividend / uint16(divisor)
		r := dividend % uint16(divisor)
		if q > 0xFF {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		c.SetAL(byte(q))
		c.SetAH(byte(r))
	case 7: // IDIV AX, Eb
		divisor := int8(c.loadByte(rm))
		c.cycl += 101
		if divisor == 0 {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		dividend := int16(c.AX())
		q := dividend / int16(divisor)
		r := dividend % int16(divisor)
		if q > 127 || q < -128 {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		c.SetAL(byte(int8(q)))
		c.SetAH(byte(int8(r)))
	}
}

func (c *CPU) opGroup3Word(reg3 int, rm Operand) {
	switch reg3 {
	case 0, 1: // TEST Ev, Iv
		val := c.loadWord(rm)
		imm := c.fetch16()
		c.aluLogic16(val & imm)
	case 2: // NOT
		c.storeWord(rm, aluNot16(c.loadWord(rm)))
	case 3: // NEG
		c.storeWord(rm, c.aluSub16(0, c.loadWord(rm), false))
	case 4: // MUL AX, Ev
		val := c.loadWord(rm)
		result := uint32(c.AX()) * uint32(val)
		c.SetAX(uint16(result))
		c.SetDX(uint16(result >> 16))
		c.setMulFlagsUnsigned(result>>16 != 0)
	case 5: // IMUL AX, Ev
		val := int16(c.loadWord(rm))
		result := int32(int16(c.AX())) * int32(val)
		c.SetAX(uint16(result))
		c.SetDX(uint16(uint32(result) >> 16))
		c.setMulFlagsSigned(result != int32(int16(result)))
	case 6: // DIV DX:AX, Ev
		divisor := c.loadWord(rm)
		c.cycl += 144
		if divisor == 0 {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		dividend := uint32(c.DX())<<16 | uint32(c.AX())
		q := dividend / uint32(divisor)
		r := dividend % uint32(divisor)
		if q > 0xFFFF {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		c.SetAX(uint16(q))
		c.SetDX(uint16(r))
	case 7: // IDIV DX:AX, Ev
		divisor := int16(c.loadWord(rm))
		c.cycl += 165
		if divisor == 0 {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		dividend := int32(uint32(c.DX())<<16 | uint32(c.AX()))
		q := dividend / int32(divisor)
		r := dividend % int32(divisor)
		if q > 32767 || q < -32768 {
			c.handleInterrupt(0, false, c.decode.nextip)
			return
		}
		c.SetAX(uint16(int16(q)))
		c.SetDX(uint16(int16(r)))
	}
}

// opGroup4 dispatches 0xFE: INC/DEC Eb. Sub-opcodes 2-7 are undefined on
// the 8086 and raise an invalid-opcode fault.
func (c *CPU) opGroup4() {
	c.fetchModRM()
	rm := c.resolveRM(false)
	switch c.decode.reg3 {
	case 0:
		c.storeByte(rm, c.aluInc8(c.loadByte(rm)))
	case 1:
		c.storeByte(rm, c.aluDec8(c.loadByte(rm)))
	default:
		c.raiseFault(InvalidOpcode, "0xFE with undefined reg field")
	}
}

// opGroup5 dispatches 0xFF: INC/DEC/CALL near/CALL far/JMP near/JMP
// far/PUSH Ev. Sub-opcode 7 is undefined and raises an invalid-opcode
// fault (the teacher instead sets Halted=true; spec.md §7 requires a
// typed fault here instead).
func (c *CPU) opGroup5() {
	c.fetchModRM()
	rm := c.resolveRM(true)
	switch c.decode.reg3 {
	case 0:
		c.storeWord(rm, c.aluInc16(c.loadWord(rm)))
	case 1:
		c.storeWord(rm, c.aluDec16(c.loadWord(rm)))
	case 2: // CALL near, indirect
		target := c.loadWord(rm)
		c.pushWord(c.decode.nextip)
		c.decode.jumpip = int32(target)
	case 3: // CALL far, indirect
		offset := c.physicalAddress(rm.Seg, rm.Offset)
		newIP := c.mem.LoadWord(offset)
		newCS := c.mem.LoadWord(offset + 2)
		c.pushWord(c.sreg[SegCS])
		c.pushWord(c.decode.nextip)
		c.SetSeg(SegCS, newCS)
		c.decode.jumpip = int32(newIP)
	case 4: // JMP near, indirect
		c.decode.jumpip = int32(c.loadWord(rm))
	case 5: // JMP far, indirect
		offset := c.physicalAddress(rm.Seg, rm.Offset)
		newIP := c.mem.LoadWord(offset)
		newCS := c.mem.LoadWord(offset + 2)
		c.SetSeg(SegCS, newCS)
		c.decode.jumpip = int32(newIP)
	case 6: // PUSH Ev
		c.pushWord(c.loadWord(rm))
	default:
		c.raiseFault(InvalidOpcode, "0xFF with undefined reg field (7)")
	}
}
