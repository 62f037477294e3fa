package m68k

// testBus is a flat 16MB memory-backed Bus shared by every test in this
// package. It is deliberately minimal: IntAck autovectors unless a test
// sets ackVector, and ResetPulse just counts pulses so RESET-instruction
// tests can observe that the bus saw one.
type testBus struct {
	mem        []byte
	ackVector  uint32
	resetCount int
}

func newTestBus() *testBus {
	return &testBus{mem: make([]byte, 1<<24)}
}

func (b *testBus) ReadInstr(addr uint32) uint16 { return b.Read16(addr) }

func (b *testBus) Read8(addr uint32) uint8 { return b.mem[addr&0xFFFFFF] }

func (b *testBus) Read16(addr uint32) uint16 {
	addr &= 0xFFFFFF
	return uint16(b.mem[addr])<<8 | uint16(b.mem[addr+1])
}

func (b *testBus) Write8(addr uint32, val uint8) { b.mem[addr&0xFFFFFF] = val }

func (b *testBus) Write16(addr uint32, val uint16) {
	addr &= 0xFFFFFF
	b.mem[addr] = uint8(val >> 8)
	b.mem[addr+1] = uint8(val)
}

func (b *testBus) RMW(addr uint32, modify func(uint8) uint8) uint8 {
	addr &= 0xFFFFFF
	orig := b.mem[addr]
	b.mem[addr] = modify(orig)
	return orig
}

func (b *testBus) IntAck(level uint8) uint32 {
	if b.ackVector != 0 {
		return b.ackVector
	}
	return uint32(busAutovectorThreshold) + 1 + uint32(level)
}

func (b *testBus) ResetPulse(asserted bool) {
	if asserted {
		b.resetCount++
	}
}

func fillNOPs(bus *testBus) {
	for i := 0; i+1 < len(bus.mem); i += 2 {
		bus.mem[i] = 0x4E
		bus.mem[i+1] = 0x71
	}
}

func writeWord(bus *testBus, addr uint32, val uint16) {
	bus.Write16(addr, val)
}

func writeLong(bus *testBus, addr uint32, val uint32) {
	bus.Write16(addr, uint16(val>>16))
	bus.Write16(addr+2, uint16(val))
}

// newNOPCPU builds a CPU sitting in supervisor mode with the IPL mask
// clear, its bus filled with NOP, bypassing the power-on reset sequence
// so tests can place an instruction and initial register state directly
// without caring what the reset vectors happen to read as.
func newNOPCPU() (*CPU, *testBus) {
	bus := newTestBus()
	fillNOPs(bus)
	c := &CPU{}
	c.SetBus(bus)
	c.SRHB = srhbS
	return c, bus
}

// cpuState is a snapshot of architecturally visible CPU state used to
// express test fixtures and assertions without reaching into package
// internals field by field at every call site.
type cpuState struct {
	D      [8]uint32
	A      [7]uint32 // A0-A6; A7 is derived from USP/SSP and the S bit
	PC     uint32
	SR     uint16
	USP    uint32
	SSP    uint32
	RAM    [][2]uint32 // (address, byte value) overrides applied before running
	Cycles int64
}

func applyState(c *CPU, st cpuState) {
	c.D = st.D
	for i := 0; i < 7; i++ {
		c.A[i] = st.A[i]
	}
	c.PC = st.PC
	c.SetSR(st.SR)
	if c.supervisor() {
		c.A[7] = st.SSP
		c.SPInactive = st.USP
	} else {
		c.A[7] = st.USP
		c.SPInactive = st.SSP
	}
}

func captureState(c *CPU) cpuState {
	st := cpuState{D: c.D, PC: c.PC, SR: c.GetSR(), Cycles: c.Cycles()}
	copy(st.A[:], c.A[:7])
	if c.supervisor() {
		st.SSP = c.A[7]
		st.USP = c.SPInactive
	} else {
		st.USP = c.A[7]
		st.SSP = c.SPInactive
	}
	return st
}

// stepOnce advances the CPU by exactly one scheduling unit: one
// instruction, one exception/interrupt entry, one reset sequence, or one
// halted/stopped idle tick. A one-cycle budget is enough to guarantee
// that: every reset, fault, interrupt and idle branch of Run returns to
// the caller at once (see run.go), and a dispatched instruction advances
// the timestamp by at least 4, past the budget, before the loop
// condition is rechecked.
func stepOnce(c *CPU) {
	c.Run(c.Cycles() + 1)
}

// runTest writes the given opcode bytes at init.PC, applies init's
// register state and RAM overrides, executes exactly one instruction,
// and compares the resulting state against want.
func runTest(t interface {
	Helper()
	Errorf(string, ...any)
}, opcode []byte, init, want cpuState) {
	t.Helper()

	c, bus := newNOPCPU()
	for i, b := range opcode {
		bus.mem[(init.PC+uint32(i))&0xFFFFFF] = b
	}
	for _, entry := range init.RAM {
		bus.mem[entry[0]&0xFFFFFF] = byte(entry[1])
	}
	applyState(c, init)

	stepOnce(c)

	got := captureState(c)
	for i := 0; i < 8; i++ {
		if got.D[i] != want.D[i] {
			t.Errorf("D%d = %#x, want %#x", i, got.D[i], want.D[i])
		}
	}
	for i := 0; i < 7; i++ {
		if got.A[i] != want.A[i] {
			t.Errorf("A%d = %#x, want %#x", i, got.A[i], want.A[i])
		}
	}
	if got.PC != want.PC {
		t.Errorf("PC = %#x, want %#x", got.PC, want.PC)
	}
	if got.SR != want.SR {
		t.Errorf("SR = %#04x, want %#04x (diff %#04x)", got.SR, want.SR, got.SR^want.SR)
	}
	if want.USP != 0 && got.USP != want.USP {
		t.Errorf("USP = %#x, want %#x", got.USP, want.USP)
	}
	if want.SSP != 0 && got.SSP != want.SSP {
		t.Errorf("SSP = %#x, want %#x", got.SSP, want.SSP)
	}
	for _, entry := range want.RAM {
		addr := entry[0] & 0xFFFFFF
		if got := bus.mem[addr]; got != byte(entry[1]) {
			t.Errorf("RAM[%#06x] = %#02x, want %#02x", addr, got, byte(entry[1]))
		}
	}
}
