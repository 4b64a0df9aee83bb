// decode.go - ModR/M decoding, effective-address computation, and the
// operand access layer (spec.md §4.1, §4.2).
//
// Grounded on fetchModRM/getModRMReg/getModRMRM/getModRMMod and
// calcEffectiveAddress16 in cpu_x86.go. The teacher computes a segment
// but discards it (`_ = seg`) because it uses a flat 32-bit memory
// model; this module keeps the computed segment and composes a real
// 20-bit physical address, since spec.md §3/§4.2 require true segmented
// addressing.
package pcxt86

// rmBaseCycles is the well-known 8086/8088 effective-address calculation
// base cost per rm encoding (mod=00 case; rm=6 there is the direct
// disp16 form). mod=01/10 add a fixed 4 cycles per spec.md §4.1, and for
// rm=6 in those modes the base is the [BP+disp] form (5) rather than the
// direct-address form (6).
var rmBaseCycles = [8]int{7, 8, 8, 7, 5, 5, 6, 5}
var rmBaseCyclesWithDisp = [8]int{7, 8, 8, 7, 5, 5, 5, 5}

func (c *CPU) fetch8() byte {
	v := c.mem.LoadByte(c.csbase + uint32(c.decode.nextip))
	c.decode.nextip++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(lo) | uint16(hi)<<8
}

func (c *CPU) fetchModRM() {
	c.decode.modrm = c.fetch8()
	c.decode.reg3 = int(c.decode.modrm>>3) & 7
}

func modMod(modrm byte) int { return int(modrm>>6) & 3 }
func modRM(modrm byte) int  { return int(modrm) & 7 }

// resolveRM decodes the rm field of the already-fetched ModR/M byte into
// an Operand, per spec.md §4.1. wide selects whether a register-direct
// (mod==3) result is a byte or word register.
func (c *CPU) resolveRM(wide bool) Operand {
	modrm := c.decode.modrm
	mod := modMod(modrm)
	rm := modRM(modrm)

	if mod == 3 {
		if wide {
			return regOperand16(rm)
		}
		return regOperand8(rm)
	}

	var base int32
	var defaultSeg int
	switch rm {
	case 0:
		base = int32(c.reg[RegBX]) + int32(c.reg[RegSI])
		defaultSeg = SegDS
	case 1:
		base = int32(c.reg[RegBX]) + int32(c.reg[RegDI])
		defaultSeg = SegDS
	case 2:
		base = int32(c.reg[RegBP]) + int32(c.reg[RegSI])
		defaultSeg = SegSS
	case 3:
		base = int32(c.reg[RegBP]) + int32(c.reg[RegDI])
		defaultSeg = SegSS
	case 4:
		base = int32(c.reg[RegSI])
		defaultSeg = SegDS
	case 5:
		base = int32(c.reg[RegDI])
		defaultSeg = SegDS
	case 6:
		if mod == 0 {
			base = 0
			defaultSeg = SegDS
		} else {
			base = int32(c.reg[RegBP])
			defaultSeg = SegSS
		}
	case 7:
		base = int32(c.reg[RegBX])
		defaultSeg = SegDS
	}

	var disp int32
	switch mod {
	case 0:
		if rm == 6 {
			disp = int32(c.fetch16())
		}
		c.cycl += uint64(rmBaseCycles[rm])
	case 1:
		disp = int32(int8(c.fetch8()))
		c.cycl += uint64(rmBaseCyclesWithDisp[rm]) + 4
	case 2:
		disp = int32(c.fetch16())
		c.cycl += uint64(rmBaseCyclesWithDisp[rm]) + 4
	}

	offset := uint16(base + disp)

	seg := defaultSeg
	if c.decode.insnseg != -1 {
		seg = int(c.decode.insnseg)
		// The override is consumed at this, its first, effective-address
		// decode (spec.md §4.5 "sticky segment-override semantics").
		c.decode.insnseg = -1
	}
	return memOperand(seg, offset)
}

// physicalAddress composes a 20-bit physical address from a segment
// index and a 16-bit offset (spec.md §3).
func (c *CPU) physicalAddress(seg int, offset uint16) uint32 {
	return (uint32(c.sreg[seg&3])<<4 + uint32(offset)) & 0xFFFFF
}

// --- Operand access layer (spec.md §4.2) ---

func (c *CPU) loadByte(op Operand) byte {
	switch op.Kind {
	case OperandReg8:
		return c.reg8(op.Reg)
	case OperandMem:
		c.cycl += 6
		return c.mem.LoadByte(c.physicalAddress(op.Seg, op.Offset))
	default:
		panic("loadByte: operand is not byte-addressable")
	}
}

func (c *CPU) storeByte(op Operand, v byte) {
	switch op.Kind {
	case OperandReg8:
		c.setReg8(op.Reg, v)
	case OperandMem:
		c.cycl += 7
		c.mem.StoreByte(c.physicalAddress(op.Seg, op.Offset), v)
	default:
		panic("storeByte: operand is not byte-addressable")
	}
}

func (c *CPU) loadWord(op Operand) uint16 {
	switch op.Kind {
	case OperandReg16:
		return c.reg16(op.Reg)
	case OperandSegReg:
		return c.sreg[op.Reg&3]
	case OperandMem:
		c.cycl += 6
		return c.mem.LoadWord(c.physicalAddress(op.Seg, op.Offset))
	default:
		panic("loadWord: operand is not word-addressable")
	}
}

func (c *CPU) storeWord(op Operand, v uint16) {
	switch op.Kind {
	case OperandReg16:
		c.setReg16(op.Reg, v)
	case OperandSegReg:
		c.SetSeg(op.Reg&3, v)
	case OperandMem:
		c.cycl += 7
		c.mem.StoreWord(c.physicalAddress(op.Seg, op.Offset), v)
	default:
		panic("storeWord: operand is not word-addressable")
	}
}
