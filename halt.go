package m68k

// anyHalted reports whether the CPU is in one of the three halt states
// that stop instruction execution outright (as distinct from STOPPED,
// which is woken by an interrupt rather than cleared by the host).
func (c *CPU) anyHalted() bool {
	return c.XPending&(xpErrorHalted|xpDTACKHalted|xpExtHalted) != 0
}
