package m68k

// serviceInterrupt processes a pending maskable interrupt or latched
// NMI: advances the timestamp for the acknowledge cycle, raises the SR
// interrupt mask to the serviced level, asks the bus to acknowledge
// (which supplies a vector number or requests autovectoring), pushes
// the return frame, and jumps to the handler.
//
// Called only from Run, when xpInt or xpNMI is pending (so IPL exceeds
// the current SR mask, or an edge to level 7 was latched), after Run has
// cleared STOPPED|INT|NMI from XPending.
func (c *CPU) serviceInterrupt() {
	level := c.IPL

	c.timestamp += 4
	oldSR := c.GetSR()
	c.enterSupervisor()
	c.setIMask(level)
	c.timestamp += 2

	vec := c.bus.IntAck(level)

	var vectorNum int
	if vec > busAutovectorThreshold {
		vectorNum = vecAutovectorBase + int(level)
	} else {
		vectorNum = int(vec)
	}

	c.pushLong(c.PC)
	c.pushWord(oldSR)

	c.vectorTo(vectorNum, vecSpuriousInterrupt)
	c.timestamp += 34
	c.primePrefetch()
}
