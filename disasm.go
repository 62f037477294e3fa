package m68k

import "fmt"

// Disassemble decodes a single instruction starting at word0, the first
// instruction word. fetch returns the extension word at the given
// 0-based word offset from word0 (so fetch(0) is the first extension
// word, fetch(1) the second, and so on); Disassemble calls it only as
// many times as the instruction's encoding requires. It returns the
// mnemonic text and the instruction's length in bytes, including word0
// and any extension words consumed.
//
// This is a best-effort text disassembler for tooling (the monitor's
// listing view, trace logging): where an addressing mode's encoding is
// unambiguous it is rendered in full (Dn, An, (An), #imm, d16(An), ...);
// a handful of rarely-inspected forms fall back to a generic "<ea>"
// placeholder rather than fully replicating resolveEA's decode tree a
// second time.
func Disassemble(word0 uint16, fetch func(offset int) uint16) (string, int) {
	d := &disassembler{word0: word0, fetch: fetch}

	switch word0 >> 12 {
	case 0x0:
		return d.group0()
	case 0x1, 0x2, 0x3:
		return d.groupMove()
	case 0x4:
		return d.group4()
	case 0x5:
		return d.group5()
	case 0x6:
		return d.group6()
	case 0x7:
		data := int8(word0 & 0xFF)
		return fmt.Sprintf("MOVEQ\t#%d,D%d", data, (word0>>9)&7), 2
	case 0x8:
		return d.group8()
	case 0x9:
		return d.groupAddSub("SUB", "SUBA", "SUBX")
	case 0xB:
		return d.groupB()
	case 0xC:
		return d.groupC()
	case 0xD:
		return d.groupAddSub("ADD", "ADDA", "ADDX")
	case 0xE:
		return d.groupE()
	}
	return fmt.Sprintf("DC.W\t$%04X", word0), 2
}

type disassembler struct {
	word0 uint16
	fetch func(offset int) uint16
}

func sizeSuffixFor(sz Size) string {
	switch sz {
	case Byte:
		return ".B"
	case Word:
		return ".W"
	case Long:
		return ".L"
	}
	return "?"
}

// eaText renders an effective address as assembly operand text,
// consuming extension words (immediate data, displacements) as needed
// via d.fetch. off is the 0-based extension-word offset this call
// should start reading from; it returns that text and the number of
// extension words it consumed.
func (d *disassembler) eaText(mode, reg uint8, sz Size, off int) (string, int) {
	switch mode {
	case 0:
		return fmt.Sprintf("D%d", reg), 0
	case 1:
		return fmt.Sprintf("A%d", reg), 0
	case 2:
		return fmt.Sprintf("(A%d)", reg), 0
	case 3:
		return fmt.Sprintf("(A%d)+", reg), 0
	case 4:
		return fmt.Sprintf("-(A%d)", reg), 0
	case 5:
		disp := int16(d.fetch(off))
		return fmt.Sprintf("%d(A%d)", disp, reg), 1
	case 6:
		ext := d.fetch(off)
		return d.briefExtText(ext, fmt.Sprintf("A%d", reg)), 1
	case 7:
		switch reg {
		case 0:
			return fmt.Sprintf("$%04X.W", d.fetch(off)), 1
		case 1:
			hi, lo := d.fetch(off), d.fetch(off+1)
			return fmt.Sprintf("$%08X.L", uint32(hi)<<16|uint32(lo)), 2
		case 2:
			disp := int16(d.fetch(off))
			return fmt.Sprintf("%d(PC)", disp), 1
		case 3:
			ext := d.fetch(off)
			return d.briefExtText(ext, "PC"), 1
		case 4:
			if sz == Long {
				hi, lo := d.fetch(off), d.fetch(off+1)
				return fmt.Sprintf("#$%08X", uint32(hi)<<16|uint32(lo)), 2
			}
			return fmt.Sprintf("#$%04X", d.fetch(off)), 1
		}
	}
	return "<ea>", 0
}

// briefExtText renders the brief extension word format shared by d8(An,Xn)
// and d8(PC,Xn): an 8-bit displacement plus an index register name.
func (d *disassembler) briefExtText(ext uint16, base string) string {
	disp := int8(ext & 0xFF)
	idxReg := (ext >> 12) & 7
	idxName := "D"
	if ext&(1<<15) != 0 {
		idxName = "A"
	}
	idxSize := ".W"
	if ext&(1<<11) != 0 {
		idxSize = ".L"
	}
	return fmt.Sprintf("%d(%s,%s%d%s)", disp, base, idxName, idxReg, idxSize)
}

func (d *disassembler) group0() (string, int) {
	w := d.word0
	if w&0xFF == 0x3C && (w>>9)&7 <= 5 {
		names := [8]string{"ORI", "ANDI", "SUBI", "ADDI", "", "EORI", "CMPI", ""}
		name := names[(w>>9)&7]
		if name != "" {
			sz := sizeEncoding(uint16((w >> 6) & 3))
			if sz == Byte {
				imm := d.fetch(0)
				reg := "CCR"
				return fmt.Sprintf("%s\t#$%02X,%s", name, imm&0xFF, reg), 4
			}
			imm := d.fetch(0)
			return fmt.Sprintf("%s\t#$%04X,SR", name, imm), 4
		}
	}
	if w&0x0100 != 0 && w&0x0038 != 0x0008 {
		bitNames := [4]string{"BTST", "BCHG", "BCLR", "BSET"}
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Byte, 0)
		return fmt.Sprintf("%s\tD%d,%s", bitNames[(w>>6)&3], (w>>9)&7, eaStr), 2 + n*2
	}
	if (w>>8) == 0x08 {
		bitNames := [4]string{"BTST", "BCHG", "BCLR", "BSET"}
		imm := d.fetch(0)
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Byte, 1)
		return fmt.Sprintf("%s\t#%d,%s", bitNames[(w>>6)&3], imm, eaStr), 4 + n*2
	}
	sz := sizeEncoding(uint16((w >> 6) & 3))
	switch (w >> 9) & 7 {
	case 0, 1, 2, 3, 5, 6:
		names := [8]string{"ORI", "ANDI", "SUBI", "ADDI", "", "EORI", "CMPI", ""}
		imm := d.fetch(0)
		extWords := 1
		if sz == Long {
			extWords = 2
		}
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, sz, extWords)
		return fmt.Sprintf("%s%s\t#$%X,%s", names[(w>>9)&7], sizeSuffixFor(sz), imm, eaStr), 2 + extWords*2 + n*2
	}
	return fmt.Sprintf("DC.W\t$%04X", w), 2
}

func (d *disassembler) groupMove() (string, int) {
	w := d.word0
	sz := moveSizeMap[(w>>12)&3]
	srcMode := uint8((w >> 3) & 7)
	srcReg := uint8(w & 7)
	dstMode := uint8((w >> 6) & 7)
	dstReg := uint8((w >> 9) & 7)

	srcText, srcN := d.eaText(srcMode, srcReg, sz, 0)
	dstText, dstN := d.eaText(dstMode, dstReg, sz, srcN)

	op := "MOVE"
	if dstMode == 1 {
		op = "MOVEA"
	}
	return fmt.Sprintf("%s%s\t%s,%s", op, sizeSuffixFor(sz), srcText, dstText), 2 + (srcN+dstN)*2
}

func (d *disassembler) group4() (string, int) {
	w := d.word0
	switch w {
	case 0x4E70:
		return "RESET", 2
	case 0x4E71:
		return "NOP", 2
	case 0x4E72:
		return fmt.Sprintf("STOP\t#$%04X", d.fetch(0)), 4
	case 0x4E73:
		return "RTE", 2
	case 0x4E75:
		return "RTS", 2
	case 0x4E76:
		return "TRAPV", 2
	case 0x4E77:
		return "RTR", 2
	}
	if w&0xFFF0 == 0x4E40 {
		return fmt.Sprintf("TRAP\t#%d", w&0xF), 2
	}
	if w&0xFFF8 == 0x4E50 {
		disp := int16(d.fetch(0))
		return fmt.Sprintf("LINK\tA%d,#%d", w&7, disp), 4
	}
	if w&0xFFF8 == 0x4E58 {
		return fmt.Sprintf("UNLK\tA%d", w&7), 2
	}
	if w&0xFFF0 == 0x4E60 {
		return fmt.Sprintf("MOVE\tA%d,USP", w&7), 2
	}
	if w&0xFFF8 == 0x4840 {
		return fmt.Sprintf("SWAP\tD%d", w&7), 2
	}
	if w&0xFFF8 == 0x4880 {
		return fmt.Sprintf("EXT.W\tD%d", w&7), 2
	}
	if w&0xFFF8 == 0x48C0 {
		return fmt.Sprintf("EXT.L\tD%d", w&7), 2
	}
	if w&0xF1C0 == 0x4180 && w&0x0800 == 0 {
		return fmt.Sprintf("CHK\t<ea>,D%d", (w>>9)&7), 2
	}
	if w&0xF1C0 == 0x41C0 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Long, 0)
		return fmt.Sprintf("LEA\t%s,A%d", eaStr, (w>>9)&7), 2 + n*2
	}
	if fam := w & 0xFF00; fam == 0x4000 || fam == 0x4200 || fam == 0x4400 || fam == 0x4600 {
		if szBits := (w >> 6) & 3; szBits != 3 {
			names := [4]string{"NEGX", "CLR", "NEG", "NOT"}
			sz := sizeEncoding(szBits)
			mode := uint8((w >> 3) & 7)
			reg := uint8(w & 7)
			eaStr, n := d.eaText(mode, reg, sz, 0)
			return fmt.Sprintf("%s%s\t%s", names[(w>>9)&3], sizeSuffixFor(sz), eaStr), 2 + n*2
		}
	}
	if w == 0x4AFC {
		return "ILLEGAL", 2
	}
	if w&0xFFC0 == 0x4AC0 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Byte, 0)
		return fmt.Sprintf("TAS\t%s", eaStr), 2 + n*2
	}
	if w&0xFF00 == 0x4A00 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Byte, 0)
		return fmt.Sprintf("TST\t%s", eaStr), 2 + n*2
	}
	if w&0xFB80 == 0x4880 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Word, 1)
		return fmt.Sprintf("MOVEM\t#$%04X,%s", d.fetch(0), eaStr), 4 + n*2
	}
	if w&0xFB80 == 0x4C80 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Word, 1)
		return fmt.Sprintf("MOVEM\t%s,#$%04X", eaStr, d.fetch(0)), 4 + n*2
	}
	if w&0xFFC0 == 0x4E80 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Long, 0)
		return fmt.Sprintf("JSR\t%s", eaStr), 2 + n*2
	}
	if w&0xFFC0 == 0x4EC0 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Long, 0)
		return fmt.Sprintf("JMP\t%s", eaStr), 2 + n*2
	}
	return fmt.Sprintf("DC.W\t$%04X", w), 2
}

func (d *disassembler) group5() (string, int) {
	w := d.word0
	if w&0x00C0 == 0x00C0 {
		cond := (w >> 8) & 0xF
		if w&0x0038 == 0x0008 {
			disp := int16(d.fetch(0))
			return fmt.Sprintf("DB%s\tD%d,$%04X", condName(cond), w&7, disp), 4
		}
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Byte, 0)
		return fmt.Sprintf("S%s\t%s", condName(cond), eaStr), 2 + n*2
	}
	data := (w >> 9) & 7
	if data == 0 {
		data = 8
	}
	sz := sizeEncoding(uint16((w >> 6) & 3))
	mode := uint8((w >> 3) & 7)
	reg := uint8(w & 7)
	eaStr, n := d.eaText(mode, reg, sz, 0)
	op := "ADDQ"
	if w&0x0100 != 0 {
		op = "SUBQ"
	}
	return fmt.Sprintf("%s%s\t#%d,%s", op, sizeSuffixFor(sz), data, eaStr), 2 + n*2
}

func (d *disassembler) group6() (string, int) {
	w := d.word0
	cond := (w >> 8) & 0xF
	disp := int32(int8(w & 0xFF))
	size := 2
	if disp == 0 {
		disp = int32(int16(d.fetch(0)))
		size = 4
	}
	switch cond {
	case 0:
		return fmt.Sprintf("BRA\t%+d", disp), size
	case 1:
		return fmt.Sprintf("BSR\t%+d", disp), size
	default:
		return fmt.Sprintf("B%s\t%+d", condName(cond), disp), size
	}
}

func (d *disassembler) group8() (string, int) {
	w := d.word0
	dn := (w >> 9) & 7
	if w&0x01F0 == 0x0100 {
		return fmt.Sprintf("SBCD\tD%d,D%d", w&7, dn), 2
	}
	if w&0x00C0 == 0x00C0 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Word, 0)
		op := "DIVU"
		if w&0x0100 != 0 {
			op = "DIVS"
		}
		return fmt.Sprintf("%s\t%s,D%d", op, eaStr, dn), 2 + n*2
	}
	sz := sizeEncoding(uint16((w >> 6) & 3))
	mode := uint8((w >> 3) & 7)
	reg := uint8(w & 7)
	eaStr, n := d.eaText(mode, reg, sz, 0)
	return fmt.Sprintf("OR%s\t%s,D%d", sizeSuffixFor(sz), eaStr, dn), 2 + n*2
}

func (d *disassembler) groupAddSub(plain, addr, extended string) (string, int) {
	w := d.word0
	rn := (w >> 9) & 7
	if w&0x00C0 == 0x00C0 {
		sz := Word
		if w&0x0100 != 0 {
			sz = Long
		}
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, sz, 0)
		return fmt.Sprintf("%s%s\t%s,A%d", addr, sizeSuffixFor(sz), eaStr, rn), 2 + n*2
	}
	if w&0x0130 == 0x0100 {
		sz := sizeEncoding(uint16((w >> 6) & 3))
		rm := w & 7
		form := "D%d,D%d"
		if w&0x0008 != 0 {
			form = "-(A%d),-(A%d)"
		}
		return fmt.Sprintf("%s%s\t"+form, extended, sizeSuffixFor(sz), rm, rn), 2
	}
	sz := sizeEncoding(uint16((w >> 6) & 3))
	mode := uint8((w >> 3) & 7)
	reg := uint8(w & 7)
	eaStr, n := d.eaText(mode, reg, sz, 0)
	if w&0x0100 != 0 {
		return fmt.Sprintf("%s%s\tD%d,%s", plain, sizeSuffixFor(sz), rn, eaStr), 2 + n*2
	}
	return fmt.Sprintf("%s%s\t%s,D%d", plain, sizeSuffixFor(sz), eaStr, rn), 2 + n*2
}

func (d *disassembler) groupB() (string, int) {
	w := d.word0
	dn := (w >> 9) & 7
	if w&0x00C0 == 0x00C0 {
		sz := Word
		if w&0x0100 != 0 {
			sz = Long
		}
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, sz, 0)
		return fmt.Sprintf("CMPA%s\t%s,A%d", sizeSuffixFor(sz), eaStr, dn), 2 + n*2
	}
	sz := sizeEncoding(uint16((w >> 6) & 3))
	mode := uint8((w >> 3) & 7)
	reg := uint8(w & 7)
	eaStr, n := d.eaText(mode, reg, sz, 0)
	if w&0x0108 == 0x0108 {
		return fmt.Sprintf("CMPM%s\t(A%d)+,(A%d)+", sizeSuffixFor(sz), reg, dn), 2
	}
	if w&0x0100 != 0 {
		return fmt.Sprintf("EOR%s\tD%d,%s", sizeSuffixFor(sz), dn, eaStr), 2 + n*2
	}
	return fmt.Sprintf("CMP%s\t%s,D%d", sizeSuffixFor(sz), eaStr, dn), 2 + n*2
}

func (d *disassembler) groupC() (string, int) {
	w := d.word0
	dn := (w >> 9) & 7
	if w&0x00C0 == 0x00C0 {
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Word, 0)
		op := "MULU"
		if w&0x0100 != 0 {
			op = "MULS"
		}
		return fmt.Sprintf("%s\t%s,D%d", op, eaStr, dn), 2 + n*2
	}
	if w&0x01F0 == 0x0100 {
		return fmt.Sprintf("ABCD\tD%d,D%d", w&7, dn), 2
	}
	if w&0x01F8 == 0x0140 {
		return fmt.Sprintf("EXG\tD%d,D%d", dn, w&7), 2
	}
	if w&0x01F8 == 0x0148 {
		return fmt.Sprintf("EXG\tA%d,A%d", dn, w&7), 2
	}
	if w&0x01F8 == 0x0188 {
		return fmt.Sprintf("EXG\tD%d,A%d", dn, w&7), 2
	}
	sz := sizeEncoding(uint16((w >> 6) & 3))
	mode := uint8((w >> 3) & 7)
	reg := uint8(w & 7)
	eaStr, n := d.eaText(mode, reg, sz, 0)
	if w&0x0100 != 0 {
		return fmt.Sprintf("AND%s\tD%d,%s", sizeSuffixFor(sz), dn, eaStr), 2 + n*2
	}
	return fmt.Sprintf("AND%s\t%s,D%d", sizeSuffixFor(sz), eaStr, dn), 2 + n*2
}

func (d *disassembler) groupE() (string, int) {
	w := d.word0
	if w&0x00C0 == 0x00C0 {
		names := [4]string{"ASR", "LSR", "ROXR", "ROR"}
		if w&0x0100 != 0 {
			names = [4]string{"ASL", "LSL", "ROXL", "ROL"}
		}
		mode := uint8((w >> 3) & 7)
		reg := uint8(w & 7)
		eaStr, n := d.eaText(mode, reg, Word, 0)
		return fmt.Sprintf("%s\t%s", names[(w>>9)&3], eaStr), 2 + n*2
	}
	names := [4]string{"ASR", "LSR", "ROXR", "ROR"}
	if w&0x0100 != 0 {
		names = [4]string{"ASL", "LSL", "ROXL", "ROL"}
	}
	sz := sizeEncoding(uint16((w >> 6) & 3))
	rn := w & 7
	op := names[(w>>3)&3]
	if w&0x0020 != 0 {
		return fmt.Sprintf("%s%s\tD%d,D%d", op, sizeSuffixFor(sz), (w>>9)&7, rn), 2
	}
	count := (w >> 9) & 7
	if count == 0 {
		count = 8
	}
	return fmt.Sprintf("%s%s\t#%d,D%d", op, sizeSuffixFor(sz), count, rn), 2
}

func condName(cond uint16) string {
	names := [16]string{
		"T", "F", "HI", "LS", "CC", "CS", "NE", "EQ",
		"VC", "VS", "PL", "MI", "GE", "LT", "GT", "LE",
	}
	if int(cond) < len(names) {
		return names[cond]
	}
	return "??"
}
