package m68k

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RegSelector names a single architectural register for GetRegister and
// SetRegister, the debugger-facing introspection surface. It is a flat
// enum rather than a pair of (bank, index) so that host tooling — a
// monitor's register-watch expression, a disassembler's operand
// formatter — can treat "which register" as one small integer.
type RegSelector int

const (
	RegD0 RegSelector = iota
	RegD1
	RegD2
	RegD3
	RegD4
	RegD5
	RegD6
	RegD7
	RegA0
	RegA1
	RegA2
	RegA3
	RegA4
	RegA5
	RegA6
	RegA7
	RegPC
	RegSR
	RegSSP
	RegUSP
	// RegPrefetchPC and RegIR are synthetic: they don't back a real
	// programmer-visible register, but they let a disassembler or
	// monitor ask "what did the CPU last fetch and from where" without
	// reaching into unexported fields. Never read by the execute path.
	RegPrefetchPC
	RegIR
)

// GetRegister reads a single register by selector. RegSSP and RegUSP
// resolve against whichever of A[7]/SPInactive currently holds that
// stack pointer, so callers never need to know the CPU's current S-bit
// state. An unrecognized selector returns sentinelDeadBeef rather than
// panicking, since this method exists for debugger and scripting code
// that may be fed an out-of-range value from outside the process.
func (c *CPU) GetRegister(sel RegSelector) uint32 {
	switch {
	case sel >= RegD0 && sel <= RegD7:
		return c.D[sel-RegD0]
	case sel >= RegA0 && sel <= RegA7:
		return c.A[sel-RegA0]
	}
	switch sel {
	case RegPC:
		return c.PC
	case RegSR:
		return uint32(c.GetSR())
	case RegSSP:
		if c.supervisor() {
			return c.A[7]
		}
		return c.SPInactive
	case RegUSP:
		if c.supervisor() {
			return c.SPInactive
		}
		return c.A[7]
	case RegPrefetchPC:
		return c.prevPC
	case RegIR:
		return uint32(c.ir)
	}
	return sentinelDeadBeef
}

// SetRegister writes a single register by selector. An unrecognized
// selector is silently ignored.
func (c *CPU) SetRegister(sel RegSelector, val uint32) {
	switch {
	case sel >= RegD0 && sel <= RegD7:
		c.D[sel-RegD0] = val
		return
	case sel >= RegA0 && sel <= RegA7:
		c.A[sel-RegA0] = val
		return
	}
	switch sel {
	case RegPC:
		c.PC = val
	case RegSR:
		c.SetSR(uint16(val))
	case RegSSP:
		if c.supervisor() {
			c.A[7] = val
		} else {
			c.SPInactive = val
		}
	case RegUSP:
		if c.supervisor() {
			c.SPInactive = val
		} else {
			c.A[7] = val
		}
	}
}

// stateSectionVersion is incremented whenever StateAction's binary
// layout changes.
const stateSectionVersion = 2

// StateMem carries save-state bytes in one direction at a time: a chain
// of StateAction calls appends to Bytes when saving, or consumes from
// Bytes (advancing pos) when loading. Modeled on mednafen's StateMem,
// which plays the same role across a whole machine's worth of
// StateAction calls, not just one CPU core.
type StateMem struct {
	Bytes []byte
	pos   int
}

var errStateTooShort = errors.New("m68k: state buffer too short")

func (sm *StateMem) putU8(v uint8) { sm.Bytes = append(sm.Bytes, v) }

func (sm *StateMem) putU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	sm.Bytes = append(sm.Bytes, b[:]...)
}

func (sm *StateMem) putU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	sm.Bytes = append(sm.Bytes, b[:]...)
}

func (sm *StateMem) putU64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	sm.Bytes = append(sm.Bytes, b[:]...)
}

func (sm *StateMem) putBool(v bool) {
	if v {
		sm.putU8(1)
	} else {
		sm.putU8(0)
	}
}

func (sm *StateMem) getU8() (uint8, error) {
	if sm.pos+1 > len(sm.Bytes) {
		return 0, errStateTooShort
	}
	v := sm.Bytes[sm.pos]
	sm.pos++
	return v, nil
}

func (sm *StateMem) getU16() (uint16, error) {
	if sm.pos+2 > len(sm.Bytes) {
		return 0, errStateTooShort
	}
	v := binary.BigEndian.Uint16(sm.Bytes[sm.pos:])
	sm.pos += 2
	return v, nil
}

func (sm *StateMem) getU32() (uint32, error) {
	if sm.pos+4 > len(sm.Bytes) {
		return 0, errStateTooShort
	}
	v := binary.BigEndian.Uint32(sm.Bytes[sm.pos:])
	sm.pos += 4
	return v, nil
}

func (sm *StateMem) getU64() (uint64, error) {
	if sm.pos+8 > len(sm.Bytes) {
		return 0, errStateTooShort
	}
	v := binary.BigEndian.Uint64(sm.Bytes[sm.pos:])
	sm.pos += 8
	return v, nil
}

func (sm *StateMem) getBool() (bool, error) {
	v, err := sm.getU8()
	return v != 0, err
}

func (sm *StateMem) getBytes(n int) ([]byte, error) {
	if sm.pos+n > len(sm.Bytes) {
		return nil, errStateTooShort
	}
	v := sm.Bytes[sm.pos : sm.pos+n]
	sm.pos += n
	return v, nil
}

// StateAction saves or loads the full architectural state — the same
// fields GetRegister/SetRegister expose plus the internal fault and
// pending-event bookkeeping Run needs to resume correctly — through sm.
// With dataOnly false, the section is wrapped in a named, versioned,
// length-prefixed envelope (sectionName, stateSectionVersion, body
// length) in the style of mednafen's SFORMAT sections, so a host saving
// several subsystems into one file can validate each on load. With
// dataOnly true the envelope is skipped and only the raw field bytes
// are written or read, for callers (snapshot/rewind buffers) that
// already know what they're reading.
//
// On load, XPending is masked to ValidMask: a reload can only restore
// a held condition (a latched NMI edge, an executed STOP, an asserted
// HALT line), never a one-shot fault that was mid-service when the
// state was captured.
func (c *CPU) StateAction(sm *StateMem, load bool, dataOnly bool, sectionName string) error {
	if load {
		return c.stateLoad(sm, dataOnly, sectionName)
	}
	c.stateSave(sm, dataOnly, sectionName)
	return nil
}

func (c *CPU) stateSave(sm *StateMem, dataOnly bool, sectionName string) {
	var body StateMem
	for i := range c.D {
		body.putU32(c.D[i])
	}
	for i := range c.A {
		body.putU32(c.A[i])
	}
	body.putU32(c.PC)
	body.putU32(c.SPInactive)
	body.putBool(c.FlagC)
	body.putBool(c.FlagV)
	body.putBool(c.FlagZ)
	body.putBool(c.FlagN)
	body.putBool(c.FlagX)
	body.putU8(c.SRHB)
	body.putU8(c.IPL)
	body.putU32(c.XPending)
	body.putU64(uint64(c.timestamp))
	body.putU16(c.ir)
	body.putU32(c.prevPC)
	body.putU8(c.prevIPL)
	body.putU32(c.faultAddr)
	body.putBool(c.faultWrite)

	if dataOnly {
		sm.Bytes = append(sm.Bytes, body.Bytes...)
		return
	}

	name := []byte(sectionName)
	sm.putU32(uint32(len(name)))
	sm.Bytes = append(sm.Bytes, name...)
	sm.putU8(stateSectionVersion)
	sm.putU32(uint32(len(body.Bytes)))
	sm.Bytes = append(sm.Bytes, body.Bytes...)
}

func (c *CPU) stateLoad(sm *StateMem, dataOnly bool, sectionName string) error {
	if !dataOnly {
		nameLen, err := sm.getU32()
		if err != nil {
			return err
		}
		name, err := sm.getBytes(int(nameLen))
		if err != nil {
			return err
		}
		if string(name) != sectionName {
			return fmt.Errorf("m68k: state section name mismatch: got %q, want %q", name, sectionName)
		}
		version, err := sm.getU8()
		if err != nil {
			return err
		}
		if version != stateSectionVersion {
			return fmt.Errorf("m68k: unsupported state section version %d", version)
		}
		if _, err := sm.getU32(); err != nil { // body length, unused: fields are read positionally
			return err
		}
	}

	var d, a [8]uint32
	for i := range d {
		v, err := sm.getU32()
		if err != nil {
			return err
		}
		d[i] = v
	}
	for i := range a {
		v, err := sm.getU32()
		if err != nil {
			return err
		}
		a[i] = v
	}
	pc, err := sm.getU32()
	if err != nil {
		return err
	}
	spInactive, err := sm.getU32()
	if err != nil {
		return err
	}
	flagC, err := sm.getBool()
	if err != nil {
		return err
	}
	flagV, err := sm.getBool()
	if err != nil {
		return err
	}
	flagZ, err := sm.getBool()
	if err != nil {
		return err
	}
	flagN, err := sm.getBool()
	if err != nil {
		return err
	}
	flagX, err := sm.getBool()
	if err != nil {
		return err
	}
	srhb, err := sm.getU8()
	if err != nil {
		return err
	}
	ipl, err := sm.getU8()
	if err != nil {
		return err
	}
	xpending, err := sm.getU32()
	if err != nil {
		return err
	}
	timestamp, err := sm.getU64()
	if err != nil {
		return err
	}
	ir, err := sm.getU16()
	if err != nil {
		return err
	}
	prevPC, err := sm.getU32()
	if err != nil {
		return err
	}
	prevIPL, err := sm.getU8()
	if err != nil {
		return err
	}
	faultAddr, err := sm.getU32()
	if err != nil {
		return err
	}
	faultWrite, err := sm.getBool()
	if err != nil {
		return err
	}

	c.D = d
	c.A = a
	c.PC = pc
	c.SPInactive = spInactive
	c.FlagC, c.FlagV, c.FlagZ, c.FlagN, c.FlagX = flagC, flagV, flagZ, flagN, flagX
	c.SRHB = srhb
	c.IPL = ipl
	c.XPending = xpending & ValidMask
	c.timestamp = int64(timestamp)
	c.ir = ir
	c.prevPC = prevPC
	c.prevIPL = prevIPL
	c.faultAddr = faultAddr
	c.faultWrite = faultWrite
	return nil
}
