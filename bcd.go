// bcd.go - decimal-adjust instructions (spec.md §4.3).
//
// Grounded on opDAA/opDAS/opAAA/opAAS/opAAM/opAAD in cpu_x86_ops.go. The
// teacher's DAA/DAS implement the documented hardware deviation spec.md
// calls out: CF is set when AL, after the low-nibble correction already
// applied above, exceeds 0x9F, even when AF was not the trigger.
package pcxt86

func (c *CPU) opDAA() {
	al := c.AL()
	cf := c.CF()
	af := false

	if al&0x0F > 9 || c.AF() {
		carry := int(al)+6 > 0xFF
		al = byte(int(al) + 6)
		cf = cf || carry
		af = true
	}
	c.setFlag(FlagAF, af)
	c.setFlag(FlagCF, cf)

	if al > 0x9F || cf {
		al = byte(int(al) + 0x60)
		cf = true
	}
	c.setFlag(FlagCF, cf)
	c.SetAL(al)
	c.setSZP8(al)
}

func (c *CPU) opDAS() {
	al := c.AL()
	cf := c.CF()
	af := false

	if al&0x0F > 9 || c.AF() {
		borrow := int(al)-6 < 0
		al = byte(int(al) - 6)
		cf = cf || borrow
		af = true
	}
	c.setFlag(FlagAF, af)
	c.setFlag(FlagCF, cf)

	if al > 0x9F || cf {
		al = byte(int(al) - 0x60)
		cf = true
	}
	c.setFlag(FlagCF, cf)
	c.SetAL(al)
	c.setSZP8(al)
}

func (c *CPU) opAAA() {
	al := c.AL()
	if al&0x0F > 9 || c.AF() {
		c.SetAL((al + 6) & 0x0F)
		c.SetAH(c.AH() + 1)
		c.setFlag(FlagAF, true)
		c.setFlag(FlagCF, true)
	} else {
		c.SetAL(al & 0x0F)
		c.setFlag(FlagAF, false)
		c.setFlag(FlagCF, false)
	}
}

func (c *CPU) opAAS() {
	al := c.AL()
	if al&0x0F > 9 || c.AF() {
		c.SetAL((al - 6) & 0x0F)
		c.SetAH(c.AH() - 1)
		c.setFlag(FlagAF, true)
		c.setFlag(FlagCF, true)
	} else {
		c.SetAL(al & 0x0F)
		c.setFlag(FlagAF, false)
		c.setFlag(FlagCF, false)
	}
}

// opAAM: a zero immediate divisor raises INT 0 rather than dividing
// (spec.md §4.3).
func (c *CPU) opAAM() {
	base := c.fetch8()
	if base == 0 {
		c.handleInterrupt(0, false, c.decode.nextip)
		return
	}
	al := c.AL()
	c.SetAH(al / base)
	c.SetAL(al % base)
	c.setFlag(FlagCF, false)
	c.setFlag(FlagOF, false)
	c.setFlag(FlagAF, false)
	c.setSZP8(c.AL())
}

func (c *CPU) opAAD() {
	base := c.fetch8()
	al := byte(int(c.AH())*int(base) + int(c.AL()))
	c.SetAL(al)
	c.SetAH(0)
	c.setFlag(FlagCF, false)
	c.setFlag(FlagOF, false)
	c.setFlag(FlagAF, false)
	c.setSZP8(al)
}

// opSALC is the undocumented 0xD6 opcode: AL = 0xFF if CF else 0x00,
// grounded on the teacher's opSALC comment ("Undocumented: Set AL to
// 0xFF if CF=1, else 0").
func (c *CPU) opSALC() {
	if c.CF() {
		c.SetAL(0xFF)
	} else {
		c.SetAL(0)
	}
}

func (c *CPU) opXLAT() {
	seg := SegDS
	if c.decode.insnseg != -1 {
		seg = int(c.decode.insnseg)
		c.decode.insnseg = -1
	}
	addr := c.physicalAddress(seg, c.BX()+uint16(c.AL()))
	c.SetAL(c.mem.LoadByte(addr))
	c.cycl += 11
}
