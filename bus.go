package m68k

// Bus is the host-supplied memory and peripheral interface the CPU core
// drives. All addresses are 24-bit; the core masks the high byte before
// calling any Bus method. 32-bit accesses are decomposed by the core into
// two 16-bit accesses, high word first, so Bus only ever sees 8- or
// 16-bit transfers.
//
// Implementations must not call back into Run. SetIPL and SetExtHalted
// may be called re-entrantly from within a Bus method (e.g. a device
// raising an interrupt line as a side effect of a write).
type Bus interface {
	// ReadInstr fetches one opcode or extension word for the instruction
	// stream at addr.
	ReadInstr(addr uint32) uint16

	// Read8 and Read16 perform a sized data read.
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16

	// Write8 and Write16 perform a sized data write.
	Write8(addr uint32, val uint8)
	Write16(addr uint32, val uint16)

	// RMW performs an indivisible read-modify-write cycle at addr: the
	// bus reads the byte, passes it to modify, and writes back whatever
	// modify returns. TAS is the only instruction that uses this; a bus
	// backed by ordinary RAM may implement it as Read8 followed by
	// Write8, but must expose it as a single call so that a bus modeling
	// shared memory or locked peripherals can serialize it properly.
	RMW(addr uint32, modify func(uint8) uint8) uint8

	// IntAck is called during interrupt exception entry with the
	// latched IPL (1-7). It returns the vector number supplied by the
	// interrupting device, or any value greater than 255 to request
	// autovectoring (INT_BASE + level).
	IntAck(level uint8) uint32

	// ResetPulse is called by the RESET instruction twice per pulse:
	// first with asserted true, then with asserted false, so hosts can
	// act on either edge of the reset line. It must not reset the CPU
	// itself.
	ResetPulse(asserted bool)
}

// busAutovectorThreshold bounds the sentinel range IntAck uses to request
// autovectoring: any returned value greater than 255.
const busAutovectorThreshold = 0xFF

// read reads a sized operand from the bus, splitting 32-bit accesses into
// two 16-bit accesses (high word first) and advancing timestamp by the
// bus-cycle cost of each access. Word and long accesses to an odd address
// latch an address error instead of reaching the bus; once latched,
// further bus activity in the same instruction is inert so the
// instruction's remaining work finishes harmlessly before Run raises the
// fault on its next iteration.
func (c *CPU) read(sz Size, addr uint32) uint32 {
	if c.XPending&xpAddress != 0 {
		return 0
	}
	addr &= 0xFFFFFF
	if sz != Byte && addr&1 != 0 {
		c.XPending |= xpAddress
		c.faultAddr = addr
		c.faultWrite = false
		return 0
	}
	switch sz {
	case Byte:
		v := c.bus.Read8(addr)
		c.timestamp += 4
		return uint32(v)
	case Word:
		v := c.bus.Read16(addr)
		c.timestamp += 4
		return uint32(v)
	case Long:
		hi := c.bus.Read16(addr)
		c.timestamp += 4
		lo := c.bus.Read16(addr + 2)
		c.timestamp += 4
		return uint32(hi)<<16 | uint32(lo)
	}
	return 0
}

// write stores a sized operand to the bus, splitting 32-bit accesses into
// two 16-bit accesses (high word first). See read for the odd-address
// address-error latch.
func (c *CPU) write(sz Size, addr uint32, val uint32) {
	if c.XPending&xpAddress != 0 {
		return
	}
	addr &= 0xFFFFFF
	if sz != Byte && addr&1 != 0 {
		c.XPending |= xpAddress
		c.faultAddr = addr
		c.faultWrite = true
		return
	}
	val &= sz.Mask()
	switch sz {
	case Byte:
		c.bus.Write8(addr, uint8(val))
		c.timestamp += 4
	case Word:
		c.bus.Write16(addr, uint16(val))
		c.timestamp += 4
	case Long:
		c.bus.Write16(addr, uint16(val>>16))
		c.timestamp += 4
		c.bus.Write16(addr+2, uint16(val))
		c.timestamp += 4
	}
}

// fetch reads one instruction-stream word at PC and advances PC by 2.
// An odd PC is an address error, latched the same way as an odd data
// access.
func (c *CPU) fetch() uint16 {
	if c.XPending&xpAddress != 0 {
		return 0
	}
	if c.PC&1 != 0 {
		c.XPending |= xpAddress
		c.faultAddr = c.PC
		c.faultWrite = false
		return 0
	}
	v := c.bus.ReadInstr(c.PC & 0xFFFFFF)
	c.timestamp += 4
	c.PC += 2
	return v
}

// fetchLong reads a 32-bit instruction-stream operand (e.g. an absolute
// long or immediate long extension), high word first.
func (c *CPU) fetchLong() uint32 {
	hi := c.fetch()
	lo := c.fetch()
	return uint32(hi)<<16 | uint32(lo)
}

// pushWord pushes a 16-bit word onto the active supervisor/user stack (A7).
func (c *CPU) pushWord(val uint16) {
	c.A[7] -= 2
	c.write(Word, c.A[7], uint32(val))
}

// pushLong pushes a 32-bit long onto the active stack (A7).
func (c *CPU) pushLong(val uint32) {
	c.A[7] -= 4
	c.write(Long, c.A[7], val)
}

// popWord pops a 16-bit word from the active stack (A7).
func (c *CPU) popWord() uint16 {
	val := c.read(Word, c.A[7])
	c.A[7] += 2
	return uint16(val)
}

// popLong pops a 32-bit long from the active stack (A7).
func (c *CPU) popLong() uint32 {
	val := c.read(Long, c.A[7])
	c.A[7] += 4
	return val
}
