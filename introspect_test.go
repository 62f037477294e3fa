package m68k

import "testing"

func TestRegisterSelectorRoundTrip(t *testing.T) {
	c, _ := newNOPCPU()
	c.A[7] = 0x8000 // supervisor stack active

	dataSelectors := []RegSelector{RegD0, RegD1, RegD2, RegD3, RegD4, RegD5, RegD6, RegD7}
	for i, sel := range dataSelectors {
		c.SetRegister(sel, uint32(0x10000000*(i+1)))
		if got := c.GetRegister(sel); got != uint32(0x10000000*(i+1)) {
			t.Errorf("D%d round-trip: got %#x", i, got)
		}
	}

	addrSelectors := []RegSelector{RegA0, RegA1, RegA2, RegA3, RegA4, RegA5, RegA6}
	for i, sel := range addrSelectors {
		c.SetRegister(sel, uint32(0x2000+i))
		if got := c.GetRegister(sel); got != uint32(0x2000+i) {
			t.Errorf("A%d round-trip: got %#x", i, got)
		}
	}

	c.SetRegister(RegA7, 0x00009000)
	if got := c.GetRegister(RegA7); got != 0x00009000 {
		t.Errorf("A7 round-trip: got %#x", got)
	}

	c.SetRegister(RegPC, 0x00123456)
	if got := c.GetRegister(RegPC); got != 0x00123456 {
		t.Errorf("PC round-trip: got %#x", got)
	}
}

func TestRegisterSelectorSSPUSPFollowSupervisorBit(t *testing.T) {
	c, _ := newNOPCPU() // supervisor mode, SPInactive (USP) is zero

	c.SetRegister(RegSSP, 0x00008000)
	if got := c.GetRegister(RegSSP); got != 0x00008000 {
		t.Errorf("SSP in supervisor mode: got %#x, want %#x", got, 0x00008000)
	}
	if c.A[7] != 0x00008000 {
		t.Errorf("SetRegister(RegSSP) in supervisor mode should write A[7], got %#x", c.A[7])
	}

	c.SetRegister(RegUSP, 0x00007000)
	if c.SPInactive != 0x00007000 {
		t.Errorf("SetRegister(RegUSP) in supervisor mode should write SPInactive, got %#x", c.SPInactive)
	}
	if got := c.GetRegister(RegUSP); got != 0x00007000 {
		t.Errorf("USP round-trip in supervisor mode: got %#x", got)
	}

	// Drop to user mode: A[7]/SPInactive swap roles, but the USP/SSP
	// values themselves are unchanged by the mode transition.
	c.SetSR(c.GetSR() &^ (1 << 13))
	if got := c.GetRegister(RegUSP); got != 0x00007000 {
		t.Errorf("USP after entering user mode: got %#x, want %#x", got, 0x00007000)
	}
	if got := c.GetRegister(RegSSP); got != 0x00008000 {
		t.Errorf("SSP after entering user mode: got %#x, want %#x", got, 0x00008000)
	}
}

func TestRegisterSelectorSRRoundTrip(t *testing.T) {
	c, _ := newNOPCPU()
	c.SetRegister(RegSR, 0x2715)
	if got := c.GetRegister(RegSR); got != 0x2715 {
		t.Errorf("SR round-trip: got %#04x, want %#04x", got, 0x2715)
	}
	if !c.FlagC || !c.FlagZ || !c.FlagX {
		t.Error("SetRegister(RegSR) should decompose into the discrete flag fields")
	}
}

func TestGetRegisterUnknownSelectorReturnsSentinel(t *testing.T) {
	c, _ := newNOPCPU()
	const unknown RegSelector = 1000
	if got := c.GetRegister(unknown); got != sentinelDeadBeef {
		t.Errorf("GetRegister(unknown) = %#x, want sentinel %#x", got, sentinelDeadBeef)
	}
	// SetRegister on an unknown selector must be a harmless no-op.
	before := *c
	c.SetRegister(unknown, 0x11111111)
	if *c != before {
		t.Error("SetRegister(unknown, ...) mutated observable state")
	}
}

func newPopulatedCPU() *CPU {
	c, _ := newNOPCPU()
	for i := range c.D {
		c.D[i] = uint32(0x1000 * (i + 1))
	}
	for i := 0; i < 7; i++ {
		c.A[i] = uint32(0x2000 * (i + 1))
	}
	c.A[7] = 0x00009000
	c.PC = 0x00004000
	c.SPInactive = 0x00007000
	c.FlagC, c.FlagV, c.FlagZ, c.FlagN, c.FlagX = true, false, true, false, true
	c.SRHB = srhbS | 5
	c.IPL = 3
	c.XPending = xpStopped | xpNMI
	c.timestamp = 123456
	c.ir = 0xABCD
	c.prevPC = 0x00003FFE
	c.prevIPL = 2
	c.faultAddr = 0x00001234
	c.faultWrite = true
	return c
}

func TestStateActionRoundTripWithEnvelope(t *testing.T) {
	orig := newPopulatedCPU()

	var sm StateMem
	if err := orig.StateAction(&sm, false, false, "M68K"); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := &CPU{}
	restored.SetBus(orig.bus)
	if err := restored.StateAction(&sm, true, false, "M68K"); err != nil {
		t.Fatalf("load: %v", err)
	}

	if *restored != *orig {
		t.Errorf("restored CPU does not match original:\n got  %+v\n want %+v", *restored, *orig)
	}
}

func TestStateActionRoundTripDataOnly(t *testing.T) {
	orig := newPopulatedCPU()

	var sm StateMem
	if err := orig.StateAction(&sm, false, true, ""); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := &CPU{}
	restored.SetBus(orig.bus)
	if err := restored.StateAction(&sm, true, true, ""); err != nil {
		t.Fatalf("load: %v", err)
	}

	if *restored != *orig {
		t.Errorf("restored CPU does not match original:\n got  %+v\n want %+v", *restored, *orig)
	}
}

func TestStateActionStripsTransientFaultBitsOnLoad(t *testing.T) {
	orig := newPopulatedCPU()
	orig.XPending |= xpAddress | xpBus

	var sm StateMem
	orig.StateAction(&sm, false, false, "M68K")

	restored := &CPU{}
	if err := restored.StateAction(&sm, true, false, "M68K"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.XPending&(xpAddress|xpBus) != 0 {
		t.Errorf("transient fault bits should not survive a reload, XPending=%#x", restored.XPending)
	}
	if restored.XPending&(xpStopped|xpNMI) != xpStopped|xpNMI {
		t.Errorf("held condition bits should survive a reload, XPending=%#x", restored.XPending)
	}
}

func TestStateActionRejectsSectionNameMismatch(t *testing.T) {
	orig := newPopulatedCPU()
	var sm StateMem
	orig.StateAction(&sm, false, false, "M68K")

	restored := &CPU{}
	if err := restored.StateAction(&sm, true, false, "WRONG"); err == nil {
		t.Error("expected an error for mismatched section name")
	}
}

func TestStateActionRejectsBadVersion(t *testing.T) {
	orig := newPopulatedCPU()
	var sm StateMem
	orig.StateAction(&sm, false, false, "M68K")
	sm.Bytes[4+len("M68K")] = 0xFF // corrupt the version byte

	restored := &CPU{}
	if err := restored.StateAction(&sm, true, false, "M68K"); err == nil {
		t.Error("expected an error for an unsupported version byte")
	}
}

func TestStateActionRejectsTruncatedBuffer(t *testing.T) {
	orig := newPopulatedCPU()
	var sm StateMem
	orig.StateAction(&sm, false, false, "M68K")
	sm.Bytes = sm.Bytes[:len(sm.Bytes)-10]

	restored := &CPU{}
	if err := restored.StateAction(&sm, true, false, "M68K"); err == nil {
		t.Error("expected an error for a truncated state buffer")
	}
}
