package m68k

// MC68000 exception vector numbers.
const (
	vecResetSSP           = 0
	vecResetPC            = 1
	vecBusError           = 2
	vecAddressError       = 3
	vecIllegalInstruction = 4
	vecDivideByZero       = 5
	vecCHK                = 6
	vecTRAPV              = 7
	vecPrivilegeViolation = 8
	vecTrace              = 9
	vecLineA              = 10
	vecLineF              = 11
	vecUninitialized      = 15
	vecSpuriousInterrupt  = 24
	vecAutovectorBase     = 24 // autovector number = vecAutovectorBase + level
	vecTrap0              = 32 // TRAP #0..#15 -> vectors 32..47
)

// isGroupOneFault reports the exceptions that push the address of the
// faulting instruction rather than the address of the next one.
func isGroupOneFault(vector int) bool {
	switch vector {
	case vecIllegalInstruction, vecPrivilegeViolation, vecLineA, vecLineF:
		return true
	}
	return false
}

// exception processes an instruction-synchronous exception: enters
// supervisor mode, clears trace, pushes the return frame (PC then SR),
// reads the vector, and jumps to the handler. savedPC follows the
// saved-PC rule per exception class: group-1 faults (illegal,
// privilege, line A/F) push the address of the faulting instruction;
// all other exceptions push the address of the next instruction.
func (c *CPU) exception(vector int) {
	if vector >= vecBusError && vector <= vecLineF {
		c.logFault("exception %d at PC=%06x SR=%04x", vector, c.PC, c.GetSR())
	}

	savedPC := c.PC
	if isGroupOneFault(vector) {
		savedPC = c.prevPC
	}

	c.raiseException(vector, savedPC)
}

// raiseException performs the common exception-entry protocol: save SR,
// enter supervisor mode, push PC (long) then SR (word), load the new PC
// from the vector table, and prime the pipeline by prefetching two
// opcode words and rewinding PC so the next Run iteration sees the
// primed state the real prefetch queue would have left behind.
func (c *CPU) raiseException(vector int, savedPC uint32) {
	oldSR := c.GetSR()
	c.enterSupervisor()

	c.pushLong(savedPC)
	c.pushWord(oldSR)

	c.vectorTo(vector, vecUninitialized)
	c.timestamp += 34
	c.primePrefetch()
}

// vectorTo loads PC from vector*4. If that slot is uninitialized (zero)
// it falls back to fallback*4; if that is also zero, a double fault has
// occurred inside the exception frame itself and the CPU halts.
func (c *CPU) vectorTo(vector, fallback int) {
	addr := c.read(Long, uint32(vector)*4)
	if addr == 0 {
		addr = c.read(Long, uint32(fallback)*4)
		if addr == 0 {
			c.XPending |= xpErrorHalted
			return
		}
	}
	c.PC = addr
}

// primePrefetch fetches two opcode words from the new PC and rewinds
// PC by 4, so the next Run iteration observes the same PC state a real
// two-word prefetch queue would have left after jumping to a handler.
// An address error latched while the frame was built or the handler
// prefetched (odd stack pointer, odd handler address) is a double fault:
// it is turned into ERRORHALTED instead of being serviced again.
func (c *CPU) primePrefetch() {
	if !c.Halted() {
		c.fetch()
		c.fetch()
		if c.XPending&xpAddress == 0 {
			c.PC -= 4
		}
	}
	if c.XPending&xpAddress != 0 {
		c.XPending = c.XPending&^xpAddress | xpErrorHalted
	}
}

// raiseBusOrAddressError raises a bus-error or address-error exception,
// additionally pushing a short frame between the SR push and the vector
// jump: a status word, the 24-bit access address as a long, and the
// instruction register, four words in all, leaving the instruction
// register on top. Of the status word only the R/W bit is filled in;
// the instruction/not and function-code bits are always zero.
func (c *CPU) raiseBusOrAddressError(vector int, faultAddr uint32, wasWrite bool) {
	savedPC := c.PC

	oldSR := c.GetSR()
	c.enterSupervisor()

	c.pushLong(savedPC)
	c.pushWord(oldSR)

	var statusWord uint16
	if !wasWrite {
		statusWord |= 1 << 4 // R/W: 1 = read
	}
	c.pushWord(statusWord)
	c.pushLong(faultAddr & 0xFFFFFF)
	c.pushWord(c.ir)

	c.vectorTo(vector, vecUninitialized)
	c.timestamp += 50
	c.primePrefetch()
}
