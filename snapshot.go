// snapshot.go - binary and textual state snapshots (spec.md §6).
//
// Grounded on GetRegisters()/GetRegister() in debug_cpu_x86.go for the
// textual dump's shape, and the encoding/binary + compress/gzip save-file
// format in debug_snapshot.go for SaveToFile/LoadFromFile, narrowed from
// the teacher's variable-width 32-bit-register MachineSnapshot to the
// spec's fixed 32-byte binary record.
package pcxt86

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// BinarySnapshot packs the full architectural register state into the
// fixed 32-byte little-endian record spec.md §6 specifies: the eight
// general registers, the four segment registers, IP, FLAGS, and four
// reserved bytes.
func (c *CPU) BinarySnapshot() [32]byte {
	var buf [32]byte
	binary.LittleEndian.PutUint16(buf[0:], c.reg[RegAX])
	binary.LittleEndian.PutUint16(buf[2:], c.reg[RegCX])
	binary.LittleEndian.PutUint16(buf[4:], c.reg[RegDX])
	binary.LittleEndian.PutUint16(buf[6:], c.reg[RegBX])
	binary.LittleEndian.PutUint16(buf[8:], c.reg[RegSP])
	binary.LittleEndian.PutUint16(buf[10:], c.reg[RegBP])
	binary.LittleEndian.PutUint16(buf[12:], c.reg[RegSI])
	binary.LittleEndian.PutUint16(buf[14:], c.reg[RegDI])
	binary.LittleEndian.PutUint16(buf[16:], c.sreg[SegES])
	binary.LittleEndian.PutUint16(buf[18:], c.sreg[SegCS])
	binary.LittleEndian.PutUint16(buf[20:], c.sreg[SegSS])
	binary.LittleEndian.PutUint16(buf[22:], c.sreg[SegDS])
	binary.LittleEndian.PutUint16(buf[24:], c.ip)
	binary.LittleEndian.PutUint16(buf[26:], c.flags)
	// buf[28:32] reserved, left zero.
	return buf
}

// RestoreSnapshot is BinarySnapshot's inverse.
func (c *CPU) RestoreSnapshot(buf [32]byte) {
	c.reg[RegAX] = binary.LittleEndian.Uint16(buf[0:])
	c.reg[RegCX] = binary.LittleEndian.Uint16(buf[2:])
	c.reg[RegDX] = binary.LittleEndian.Uint16(buf[4:])
	c.reg[RegBX] = binary.LittleEndian.Uint16(buf[6:])
	c.reg[RegSP] = binary.LittleEndian.Uint16(buf[8:])
	c.reg[RegBP] = binary.LittleEndian.Uint16(buf[10:])
	c.reg[RegSI] = binary.LittleEndian.Uint16(buf[12:])
	c.reg[RegDI] = binary.LittleEndian.Uint16(buf[14:])
	c.SetSeg(SegES, binary.LittleEndian.Uint16(buf[16:]))
	c.SetSeg(SegCS, binary.LittleEndian.Uint16(buf[18:]))
	c.SetSeg(SegSS, binary.LittleEndian.Uint16(buf[20:]))
	c.SetSeg(SegDS, binary.LittleEndian.Uint16(buf[22:]))
	c.ip = binary.LittleEndian.Uint16(buf[24:])
	c.setFlags(binary.LittleEndian.Uint16(buf[26:]))
}

// flagGlyphs renders FLAGS as the conventional letter-per-bit string,
// uppercase when set, lowercase when clear, in the teacher's debug
// register-dump order.
func (c *CPU) flagGlyphs() string {
	bit := func(mask uint16, set, clear byte) byte {
		if c.flags&mask != 0 {
			return set
		}
		return clear
	}
	return string([]byte{
		bit(FlagOF, 'O', 'o'),
		bit(FlagDF, 'D', 'd'),
		bit(FlagIF, 'I', 'i'),
		bit(FlagTF, 'T', 't'),
		bit(FlagSF, 'S', 's'),
		bit(FlagZF, 'Z', 'z'),
		bit(FlagAF, 'A', 'a'),
		bit(FlagPF, 'P', 'p'),
		bit(FlagCF, 'C', 'c'),
	})
}

// DiagnosticDump renders a human-readable multi-line register and
// memory dump: the general and segment registers, FLAGS as glyphs, the
// cycle counter, and 16 bytes of code memory around CS:IP with a
// cursor marking the next byte to be fetched.
func (c *CPU) DiagnosticDump() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "AX=%04X CX=%04X DX=%04X BX=%04X SP=%04X BP=%04X SI=%04X DI=%04X\n",
		c.AX(), c.CX(), c.DX(), c.BX(), c.SP(), c.BP(), c.SI(), c.DI())
	fmt.Fprintf(&b, "ES=%04X CS=%04X SS=%04X DS=%04X IP=%04X FLAGS=%04X [%s]\n",
		c.Seg(SegES), c.Seg(SegCS), c.Seg(SegSS), c.Seg(SegDS), c.ip, c.flags, c.flagGlyphs())
	fmt.Fprintf(&b, "cycles=%d\n", c.cycl)

	start := c.ip - 8
	fmt.Fprintf(&b, "%04X:%04X  ", c.Seg(SegCS), start)
	for i := uint16(0); i < 16; i++ {
		addr := c.physicalAddress(SegCS, start+i)
		cursor := byte(' ')
		if start+i == c.ip {
			cursor = '>'
		}
		fmt.Fprintf(&b, "%c%02X", cursor, c.mem.LoadByte(addr))
	}
	b.WriteByte('\n')
	return b.String()
}

const snapshotMagic = "PCXT"
const snapshotVersion = 1

// SaveToFile writes a gzip-compressed snapshot (magic, version, the
// 32-byte register record, then the full 1 MiB memory image) to path.
func SaveToFile(path string, c *CPU, mem *SystemMemory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	if _, err := gz.Write([]byte(snapshotMagic)); err != nil {
		return err
	}
	if err := binary.Write(gz, binary.LittleEndian, uint32(snapshotVersion)); err != nil {
		return err
	}
	regs := c.BinarySnapshot()
	if _, err := gz.Write(regs[:]); err != nil {
		return err
	}
	_, err = gz.Write(mem.bytes[:])
	return err
}

// LoadFromFile is SaveToFile's inverse.
func LoadFromFile(path string, c *CPU, mem *SystemMemory) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(gz, magic); err != nil {
		return err
	}
	if string(magic) != snapshotMagic {
		return fmt.Errorf("not a pcxt86 snapshot file")
	}
	var version uint32
	if err := binary.Read(gz, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", version)
	}
	var regs [32]byte
	if _, err := io.ReadFull(gz, regs[:]); err != nil {
		return err
	}
	c.RestoreSnapshot(regs)
	_, err = io.ReadFull(gz, mem.bytes[:])
	return err
}
