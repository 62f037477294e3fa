package m68k

// Status-register high byte bit positions (see spec §3: SRHB packs T, S
// and the interrupt mask out of the 16-bit SR word).
const (
	srhbT     uint8 = 1 << 7 // Trace
	srhbS     uint8 = 1 << 5 // Supervisor
	srhbIMask uint8 = 0x07   // Interrupt priority mask, I2..I0
)

// GetSR composes the 16-bit status register from SRHB and the five
// discrete condition-code booleans. Layout: T _ S _ _ I2 I1 I0 _ _ _ X N Z V C.
func (c *CPU) GetSR() uint16 {
	var sr uint16

	if c.SRHB&srhbT != 0 {
		sr |= 1 << 15
	}
	if c.SRHB&srhbS != 0 {
		sr |= 1 << 13
	}
	sr |= uint16(c.SRHB&srhbIMask) << 8

	if c.FlagX {
		sr |= 1 << 4
	}
	if c.FlagN {
		sr |= 1 << 3
	}
	if c.FlagZ {
		sr |= 1 << 2
	}
	if c.FlagV {
		sr |= 1 << 1
	}
	if c.FlagC {
		sr |= 1 << 0
	}
	return sr
}

// SetSR decomposes v into SRHB and the condition-code booleans. If the S
// bit changes, A[7] and SPInactive are swapped atomically so that A[7]
// always holds the stack pointer selected by the new S bit. xpInt is
// recomputed against the new mask, since lowering it can make an
// already-latched IPL serviceable.
func (c *CPU) SetSR(v uint16) {
	newS := v&(1<<13) != 0

	var newSRHB uint8
	if v&(1<<15) != 0 {
		newSRHB |= srhbT
	}
	if newS {
		newSRHB |= srhbS
	}
	newSRHB |= uint8((v >> 8) & 7)

	oldS := c.SRHB&srhbS != 0
	c.SRHB = newSRHB

	c.FlagX = v&(1<<4) != 0
	c.FlagN = v&(1<<3) != 0
	c.FlagZ = v&(1<<2) != 0
	c.FlagV = v&(1<<1) != 0
	c.FlagC = v&(1<<0) != 0

	if oldS != newS {
		c.swapStackPointers()
	}

	c.updateXpInt()
}

// SetCCR sets only the condition code register (the low byte of SR).
// Bits 5-7 of that byte are reserved-zero on the 68000 and ignored.
func (c *CPU) SetCCR(ccr uint8) {
	c.FlagX = ccr&(1<<4) != 0
	c.FlagN = ccr&(1<<3) != 0
	c.FlagZ = ccr&(1<<2) != 0
	c.FlagV = ccr&(1<<1) != 0
	c.FlagC = ccr&(1<<0) != 0
}

// swapStackPointers exchanges A[7] and SPInactive. Called by every path
// that can flip the S bit (SetSR, RTE, exception entry/exit) so the
// active/inactive stack-pointer invariant never drifts. Never inlined at
// the call sites on purpose (see spec design notes §9).
func (c *CPU) swapStackPointers() {
	c.A[7], c.SPInactive = c.SPInactive, c.A[7]
}

// supervisor reports whether the CPU is currently in supervisor mode.
func (c *CPU) supervisor() bool {
	return c.SRHB&srhbS != 0
}

// enterSupervisor enters supervisor mode and clears the trace bit, as
// every exception entry path must. It is idempotent if already in
// supervisor mode.
func (c *CPU) enterSupervisor() {
	if !c.supervisor() {
		c.SRHB |= srhbS
		c.swapStackPointers()
	}
	c.SRHB &^= srhbT
}

// setIMask sets the SR interrupt-mask field (I2..I0), as interrupt entry
// does to raise the mask to the serviced level.
func (c *CPU) setIMask(level uint8) {
	c.SRHB = (c.SRHB &^ srhbIMask) | (level & srhbIMask)
	c.updateXpInt()
}

// imask returns the current SR interrupt-mask field.
func (c *CPU) imask() uint8 {
	return c.SRHB & srhbIMask
}

// updateXpInt recomputes xpInt from the current IPL against the SR
// interrupt mask. xpInt must only ever be set while the latched IPL is
// actually serviceable (IPL > the current mask; an edge to level 7 is
// latched separately as xpNMI by SetIPL) — Run's
// XPending branch for xpInt|xpNMI has no fallthrough to normal dispatch,
// so a masked level left set here would stall the CPU forever. Called
// from every path that can change either half of that comparison: IPL
// (SetIPL) and the SR mask (SetSR, setIMask).
func (c *CPU) updateXpInt() {
	if c.IPL > c.imask() {
		c.XPending |= xpInt
	} else {
		c.XPending &^= xpInt
	}
}

// setFlagsAdd sets X,N,Z,V,C after an addition: result = dst + src.
func (c *CPU) setFlagsAdd(src, dst, result uint32, sz Size) {
	msb := sz.MSB()
	mask := sz.Mask()
	r := result & mask
	s := src & mask
	d := dst & mask

	c.FlagZ = r == 0
	c.FlagN = r&msb != 0
	// Overflow: both operands same sign, result different sign.
	c.FlagV = (s^r)&(d^r)&msb != 0
	// Carry: unsigned overflow.
	c.FlagC = result&(msb<<1) != 0 || (sz == Long && (s&d|(s|d)&^r)&msb != 0)
	c.FlagX = c.FlagC
}

// setFlagsSub sets X,N,Z,V,C after a subtraction: result = dst - src.
func (c *CPU) setFlagsSub(src, dst, result uint32, sz Size) {
	msb := sz.MSB()
	mask := sz.Mask()
	r := result & mask
	s := src & mask
	d := dst & mask

	c.FlagZ = r == 0
	c.FlagN = r&msb != 0
	c.FlagV = (s^d)&(r^d)&msb != 0
	c.FlagC = (s&^d|r&^d|s&r)&msb != 0
	c.FlagX = c.FlagC
}

// setFlagsCmp sets N,Z,V,C after a comparison (subtraction without
// storing a result). Unlike setFlagsSub, X is left untouched.
func (c *CPU) setFlagsCmp(src, dst, result uint32, sz Size) {
	msb := sz.MSB()
	mask := sz.Mask()
	r := result & mask
	s := src & mask
	d := dst & mask

	c.FlagZ = r == 0
	c.FlagN = r&msb != 0
	c.FlagV = (s^d)&(r^d)&msb != 0
	c.FlagC = (s&^d|r&^d|s&r)&msb != 0
}

// setFlagsLogical sets N,Z and clears V,C after a logical operation or a
// MOVE. X is left untouched, matching MOVE and the bitwise instructions.
func (c *CPU) setFlagsLogical(result uint32, sz Size) {
	c.FlagZ = result&sz.Mask() == 0
	c.FlagN = result&sz.MSB() != 0
	c.FlagV = false
	c.FlagC = false
}

// clearZUnlessZero applies the Z rule of the ADDX/SUBX/NEGX/ABCD/
// SBCD/NBCD family: Z is cleared when the result is non-zero but left
// untouched (never forced to 1) when the result is zero, so a chain of
// multi-precision operations correctly reports an overall non-zero
// result if any limb was non-zero.
func (c *CPU) clearZUnlessZero(resultNonZero bool) {
	if resultNonZero {
		c.FlagZ = false
	}
}

// testCondition evaluates one of the 16 MC68000 branch condition codes.
func (c *CPU) testCondition(cc uint16) bool {
	switch cc {
	case 0: // T
		return true
	case 1: // F
		return false
	case 2: // HI
		return !c.FlagC && !c.FlagZ
	case 3: // LS
		return c.FlagC || c.FlagZ
	case 4: // CC
		return !c.FlagC
	case 5: // CS
		return c.FlagC
	case 6: // NE
		return !c.FlagZ
	case 7: // EQ
		return c.FlagZ
	case 8: // VC
		return !c.FlagV
	case 9: // VS
		return c.FlagV
	case 10: // PL
		return !c.FlagN
	case 11: // MI
		return c.FlagN
	case 12: // GE
		return c.FlagN == c.FlagV
	case 13: // LT
		return c.FlagN != c.FlagV
	case 14: // GT
		return c.FlagN == c.FlagV && !c.FlagZ
	case 15: // LE
		return c.FlagZ || c.FlagN != c.FlagV
	}
	return false
}
