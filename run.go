package m68k

// Run executes instructions until the monotonic timestamp reaches
// until, or an early return condition is hit: a reset sequence, a bus
// or address error, an interrupt acknowledgement, or the idle tick
// taken while STOPped or halted. Each of those yields control back to
// the caller immediately (rather than looping internally) so the host
// scheduler can observe side effects — interrupt-acknowledge bus
// traffic in particular — before the next instruction executes.
//
// timestamp is monotonically non-decreasing across calls.
func (c *CPU) Run(until int64) {
	for c.timestamp < until {
		if c.XPending != 0 {
			if !c.anyHalted() {
				switch {
				case c.XPending&xpReset != 0:
					c.doReset()
					c.XPending &^= xpReset
					return

				case c.XPending&(xpBus|xpAddress) != 0:
					vector := vecAddressError
					faultAddr, faultWrite := c.faultAddr, c.faultWrite
					if c.XPending&xpBus != 0 {
						vector = vecBusError
						faultAddr, faultWrite = c.PC, false
					}
					c.XPending &^= xpBus | xpAddress
					c.raiseBusOrAddressError(vector, faultAddr, faultWrite)
					return

				case c.XPending&(xpInt|xpNMI) != 0:
					// xpInt is only ever latched while already serviceable
					// (IPL > the current SR mask — see updateXpInt); xpNMI
					// only on an edge to IPL 7. Either bit
					// being set here therefore means service is due now.
					c.XPending &^= xpStopped | xpInt | xpNMI
					c.serviceInterrupt()
					return
				}
			}
			c.timestamp += 4
			return
		}

		c.prevPC = c.PC
		c.ir = c.fetch()

		handler := opcodeTable[c.ir]
		if handler == nil {
			switch c.ir >> 12 {
			case 0xA:
				c.exception(vecLineA)
			case 0xF:
				c.exception(vecLineF)
			default:
				c.exception(vecIllegalInstruction)
			}
			return
		}
		handler(c)

		if c.SRHB&srhbT != 0 && c.XPending&(xpErrorHalted) == 0 {
			c.exception(vecTrace)
			return
		}
	}
}
