// Package m68k implements a Motorola 68000 CPU emulator core.
//
// The MC68000 is a 32-bit internal / 16-bit external CISC processor with:
//   - Eight 32-bit data registers (D0-D7)
//   - Eight 32-bit address registers (A0-A7), where A7 is the active
//     stack pointer and aliases USP or SSP depending on the S flag
//   - A 32-bit program counter (24-bit external address bus)
//   - A 16-bit status register, decomposed here into five discrete
//     condition-code booleans plus a high byte (SRHB) carrying the
//     trace bit, the supervisor bit, and the interrupt mask
//
// This package models the architectural core only: registers, flags,
// the effective-address engine, instruction dispatch, and the
// exception/interrupt/halt state machine. It does not implement a bus,
// DMA, or any peripheral — the host supplies those through Bus.
package m68k

import "log"

// XPending bits: asynchronous events awaiting service at the next
// instruction boundary.
const (
	xpReset       uint32 = 1 << iota // Reset line asserted
	xpAddress                        // Address error latched
	xpBus                            // Bus error latched
	xpInt                            // Maskable interrupt asserted
	xpNMI                            // Level-7 interrupt latched
	xpStopped                        // STOP instruction executed
	xpErrorHalted                    // Double bus fault
	xpDTACKHalted                    // Host-requested DTACK halt
	xpExtHalted                      // External HALT line asserted
)

// ValidMask is the subset of XPending bits that survive a state reload.
// Transient fault/halt conditions (RESET, ADDRESS, BUS, ERRORHALTED,
// DTACKHALTED) are one-shot events serviced within the Run call that
// raised them and are stripped on reload; NMI, STOPPED and EXTHALTED
// describe a held condition of the machine (a latched level-7 edge, an
// executed STOP, an asserted external pin) and survive.
const ValidMask uint32 = xpNMI | xpStopped | xpExtHalted

// sentinelDeadBeef is returned by GetRegister for an unrecognized
// selector; SetRegister silently ignores unrecognized selectors.
const sentinelDeadBeef uint32 = 0xDEADBEEF

// CPU is the MC68000 processor core.
type CPU struct {
	D [8]uint32 // Data registers; byte/word ops leave upper bits unchanged
	A [8]uint32 // Address registers; A[7] is the active stack pointer

	PC uint32 // Program counter (bit 0 is architecturally zero)

	// SPInactive holds the stack pointer not currently selected by the
	// S flag: USP when in supervisor mode, SSP when in user mode.
	// Exactly one of A[7]/SPInactive is the supervisor stack pointer at
	// any time; swapStackPointers keeps that invariant across every
	// transition of S.
	SPInactive uint32

	FlagC, FlagV, FlagZ, FlagN, FlagX bool

	// SRHB is the status-register high byte: T(bit7) S(bit5) I2..I0(bits2-0).
	SRHB uint8

	// IPL is the interrupt priority level latched from the bus by SetIPL.
	IPL uint8

	// XPending is the bitmap of asynchronous events awaiting service.
	XPending uint32

	// timestamp is the monotonic cycle counter; advanced by bus
	// accesses and per-instruction cycle costs. Never decreases.
	timestamp int64

	bus Bus

	// revE records the mask-revision-E choice passed to New. It is kept
	// across Reset(true), but no behavior branches on it and StateAction
	// does not save it.
	revE bool

	ir     uint16 // first word of the currently executing instruction
	prevPC uint32 // PC of the instruction currently executing, the saved PC of group-1 faults

	prevIPL uint8 // IPL as of the last SetIPL call, for edge-to-7 NMI detection

	// faultAddr/faultWrite record the access that tripped xpAddress, for
	// the fault frame raiseBusOrAddressError builds on the next Run
	// iteration.
	faultAddr  uint32
	faultWrite bool
}

// New creates a CPU in its power-up state: all architectural state
// zeroed, with XPending carrying RESET so the first Run call performs
// the reset sequence (reads SSP from address 0 and PC from address 4)
// before executing any instruction. revE is recorded on the CPU; no
// behavior differs between the two chip revisions.
//
// The bus must be wired with SetBus before the first Run call.
func New(revE bool) *CPU {
	c := &CPU{revE: revE}
	c.XPending = xpReset
	return c
}

// SetBus wires the host-supplied bus interface. Must be called before
// the first Run.
func (c *CPU) SetBus(bus Bus) {
	c.bus = bus
}

// Reset requests a CPU reset. With poweringUp true, the data/address
// registers, PC and status are zeroed immediately, as at power-on;
// otherwise register contents are preserved until the vectors are read.
// In both cases the SSP/PC vector fetch itself happens inside Run, via
// the RESET branch of the run loop.
func (c *CPU) Reset(poweringUp bool) {
	if poweringUp {
		bus, revE, ts := c.bus, c.revE, c.timestamp
		*c = CPU{bus: bus, revE: revE, timestamp: ts}
	}
	c.XPending = (c.XPending &^ (xpStopped | xpNMI | xpAddress | xpBus | xpErrorHalted | xpDTACKHalted)) | xpReset
}

// doReset performs the actual reset sequence: reads the initial SSP
// from address 0 and PC from address 4, and enters supervisor mode
// with the interrupt mask fully raised, as real 68000 hardware does.
func (c *CPU) doReset() {
	c.SRHB = srhbS | srhbIMask // supervisor, trace clear, I=7
	c.FlagC, c.FlagV, c.FlagZ, c.FlagN, c.FlagX = false, false, false, false, false
	c.IPL = 0
	c.prevIPL = 0

	ssp := c.read(Long, 0)
	c.A[7] = ssp
	c.SPInactive = 0
	c.PC = c.read(Long, 4)
	c.prevPC = c.PC
}

// Halted reports whether the CPU is halted (ERRORHALTED, DTACKHALTED or
// EXTHALTED). While halted, Run executes no instructions.
func (c *CPU) Halted() bool {
	return c.XPending&(xpErrorHalted|xpDTACKHalted|xpExtHalted) != 0
}

// Stopped reports whether the CPU is idling after a STOP instruction.
func (c *CPU) Stopped() bool {
	return c.XPending&xpStopped != 0
}

// Cycles returns the current monotonic timestamp (cycle count).
func (c *CPU) Cycles() int64 {
	return c.timestamp
}

// SetExtHalted asserts or deasserts the external HALT line. May be
// called from a bus callback, re-entrantly with respect to Run.
func (c *CPU) SetExtHalted(asserted bool) {
	if asserted {
		c.XPending |= xpExtHalted
	} else {
		c.XPending &^= xpExtHalted
	}
}

// SetDTACKHalted enters or leaves a host-requested DTACK halt (e.g. a
// device the bus is waiting on that will never assert DTACK). May be
// called from a bus callback.
func (c *CPU) SetDTACKHalted(asserted bool) {
	if asserted {
		c.XPending |= xpDTACKHalted
	} else {
		c.XPending &^= xpDTACKHalted
	}
}

// SetIPL latches a new interrupt priority level (0-7) from the bus.
// An edge to level 7 latches a non-maskable interrupt; dropping below
// 7 clears the latched NMI so it cannot be re-serviced until another
// edge to 7 occurs. xpInt is only raised when the new level is already
// serviceable against the current SR mask (see updateXpInt); a masked
// level is tracked purely through IPL and re-checked by updateXpInt
// whenever the mask itself changes. May be called from a bus callback.
func (c *CPU) SetIPL(level uint8) {
	level &= 7
	if level == 7 && c.prevIPL != 7 {
		c.XPending |= xpNMI
	}
	if level < 7 {
		c.XPending &^= xpNMI
	}
	c.prevIPL = level
	c.IPL = level
	c.updateXpInt()
}

// logFault writes a diagnostic line for an architectural fault. Never
// called from the hot instruction-dispatch path, only from exception
// and halt transitions.
func (c *CPU) logFault(format string, args ...any) {
	log.Printf("[m68k] "+format, args...)
}
