// Command m68kmon is a small command-line monitor for the m68k core: it
// loads a flat memory image, runs or single-steps it, disassembles it, and
// replays SingleStepTests-format JSON conformance vectors against it.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.design/x/clipboard"
	"golang.org/x/term"
	lua "github.com/yuin/gopher-lua"

	cli "github.com/urfave/cli/v2"

	"github.com/go68k/m68k"
)

// flatBus is the reference Bus implementation shared by the run, sst and
// repl subcommands: 16MB of flat RAM with autovectored interrupts and a
// counted (otherwise ignored) reset pulse.
type flatBus struct {
	mem    [1 << 24]byte
	resets int
}

func (b *flatBus) ReadInstr(addr uint32) uint16 { return b.Read16(addr) }
func (b *flatBus) Read8(addr uint32) uint8      { return b.mem[addr&0xFFFFFF] }
func (b *flatBus) Read16(addr uint32) uint16 {
	addr &= 0xFFFFFF
	return uint16(b.mem[addr])<<8 | uint16(b.mem[addr+1])
}
func (b *flatBus) Write8(addr uint32, v uint8) { b.mem[addr&0xFFFFFF] = v }
func (b *flatBus) Write16(addr uint32, v uint16) {
	addr &= 0xFFFFFF
	b.mem[addr] = byte(v >> 8)
	b.mem[addr+1] = byte(v)
}
func (b *flatBus) RMW(addr uint32, modify func(uint8) uint8) uint8 {
	addr &= 0xFFFFFF
	old := b.mem[addr]
	b.mem[addr] = modify(old)
	return old
}
func (b *flatBus) IntAck(level uint8) uint32 { return 0x100 + uint32(level) } // request autovector
func (b *flatBus) ResetPulse(asserted bool) {
	if asserted {
		b.resets++
	}
}

func loadImage(bus *flatBus, path string, loadAddr uint32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if int(loadAddr)+len(data) > len(bus.mem) {
		return fmt.Errorf("image of %d bytes at %#x overruns 16MB address space", len(data), loadAddr)
	}
	copy(bus.mem[loadAddr:], data)
	return nil
}

func dumpRegisters(c *m68k.CPU) string {
	var sb strings.Builder
	for i := m68k.RegD0; i <= m68k.RegD7; i++ {
		fmt.Fprintf(&sb, "D%d=%08X ", i-m68k.RegD0, c.GetRegister(i))
	}
	sb.WriteString("\n")
	for i := m68k.RegA0; i <= m68k.RegA7; i++ {
		fmt.Fprintf(&sb, "A%d=%08X ", i-m68k.RegA0, c.GetRegister(i))
	}
	fmt.Fprintf(&sb, "\nPC=%08X SR=%04X SSP=%08X USP=%08X\n",
		c.GetRegister(m68k.RegPC), c.GetRegister(m68k.RegSR),
		c.GetRegister(m68k.RegSSP), c.GetRegister(m68k.RegUSP))
	return sb.String()
}

func main() {
	app := &cli.App{
		Name:  "m68kmon",
		Usage: "monitor and conformance runner for the m68k core",
		Commands: []*cli.Command{
			runCommand,
			disasmCommand,
			sstCommand,
			replCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "load an image and run it until it halts or stops",
	ArgsUsage: "<image>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "load", Value: "0x1000", Usage: "address the image is loaded at"},
		&cli.StringFlag{Name: "pc", Value: "", Usage: "initial PC (defaults to --load)"},
		&cli.StringFlag{Name: "sp", Value: "0x00FFFFFE", Usage: "initial supervisor stack pointer"},
		&cli.Int64Flag{Name: "cycles", Value: 1_000_000, Usage: "cycle budget before giving up"},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("usage: m68kmon run [flags] <image>", 1)
		}
		loadAddr, err := parseUint32(ctx.String("load"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		pc := loadAddr
		if ctx.String("pc") != "" {
			if pc, err = parseUint32(ctx.String("pc")); err != nil {
				return cli.Exit(err, 1)
			}
		}
		sp, err := parseUint32(ctx.String("sp"))
		if err != nil {
			return cli.Exit(err, 1)
		}

		bus := &flatBus{}
		if err := loadImage(bus, ctx.Args().First(), loadAddr); err != nil {
			return cli.Exit(err, 1)
		}

		c := m68k.New(false)
		c.SetBus(bus)
		c.Run(c.Cycles() + 1) // take the pending power-on reset before setting PC/SSP
		c.SetRegister(m68k.RegPC, pc)
		c.SetRegister(m68k.RegSSP, sp)

		budget := c.Cycles() + ctx.Int64("cycles")
		for c.Cycles() < budget && !c.Halted() && !c.Stopped() {
			c.Run(c.Cycles() + 1)
		}

		fmt.Print(dumpRegisters(c))
		if c.Halted() {
			fmt.Println("halted")
		}
		if c.Stopped() {
			fmt.Println("stopped")
		}
		if bus.resets > 0 {
			fmt.Printf("bus reset pulsed %d time(s)\n", bus.resets)
		}
		return nil
	},
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "disassemble a flat binary image",
	ArgsUsage: "<image>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "base", Value: "0x1000", Usage: "address of the first byte"},
		&cli.IntFlag{Name: "count", Value: 32, Usage: "number of instructions to print"},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("usage: m68kmon disasm [flags] <image>", 1)
		}
		base, err := parseUint32(ctx.String("base"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		data, err := os.ReadFile(ctx.Args().First())
		if err != nil {
			return cli.Exit(err, 1)
		}
		word := func(off int) uint16 {
			if off+1 >= len(data) {
				return 0
			}
			return uint16(data[off])<<8 | uint16(data[off+1])
		}
		offset := 0
		for i := 0; i < ctx.Int("count") && offset+1 < len(data); i++ {
			text, size := m68k.Disassemble(word(offset), func(ext int) uint16 { return word(offset + 2 + 2*ext) })
			fmt.Printf("%08X  %s\n", base+uint32(offset), text)
			offset += size
		}
		return nil
	},
}

type sstState struct {
	D0, D1, D2, D3, D4, D5, D6, D7     uint32
	A0, A1, A2, A3, A4, A5, A6         uint32
	USP, SSP                          uint32
	SR                                 uint16
	PC                                 uint32
	RAM                                [][]uint32
}

type sstVector struct {
	Name    string   `json:"name"`
	Initial sstState `json:"initial"`
	Final   sstState `json:"final"`
	Length  int      `json:"length"`
}

func (s *sstState) UnmarshalJSON(data []byte) error {
	// SingleStepTests registers (d0..d7, a0..a6) don't share a struct-tag
	// prefix Go's encoding/json can expand automatically, so decode via a
	// generic field map instead of a second tagged struct.
	var full map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	get := func(name string) uint32 {
		var v uint32
		if raw, ok := full[name]; ok {
			json.Unmarshal(raw, &v)
		}
		return v
	}
	s.D0, s.D1, s.D2, s.D3 = get("d0"), get("d1"), get("d2"), get("d3")
	s.D4, s.D5, s.D6, s.D7 = get("d4"), get("d5"), get("d6"), get("d7")
	s.A0, s.A1, s.A2, s.A3 = get("a0"), get("a1"), get("a2"), get("a3")
	s.A4, s.A5, s.A6 = get("a4"), get("a5"), get("a6")
	s.USP, s.SSP, s.PC = get("usp"), get("ssp"), get("pc")
	var sr uint32
	if raw, ok := full["sr"]; ok {
		json.Unmarshal(raw, &sr)
	}
	s.SR = uint16(sr)
	if raw, ok := full["ram"]; ok {
		json.Unmarshal(raw, &s.RAM)
	}
	return nil
}

func applySSTState(c *m68k.CPU, s sstState) {
	d := [8]uint32{s.D0, s.D1, s.D2, s.D3, s.D4, s.D5, s.D6, s.D7}
	for i, v := range d {
		c.SetRegister(m68k.RegD0+m68k.RegSelector(i), v)
	}
	a := [7]uint32{s.A0, s.A1, s.A2, s.A3, s.A4, s.A5, s.A6}
	for i, v := range a {
		c.SetRegister(m68k.RegA0+m68k.RegSelector(i), v)
	}
	c.SetRegister(m68k.RegSR, uint32(s.SR))
	c.SetRegister(m68k.RegSSP, s.SSP)
	c.SetRegister(m68k.RegUSP, s.USP)
	c.SetRegister(m68k.RegPC, s.PC)
}

var sstCommand = &cli.Command{
	Name:      "sst",
	Usage:     "replay SingleStepTests JSON vectors against the core",
	ArgsUsage: "<dir>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("usage: m68kmon sst <dir>", 1)
		}
		entries, err := os.ReadDir(ctx.Args().First())
		if err != nil {
			return cli.Exit(err, 1)
		}
		pass, fail := 0, 0
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := ctx.Args().First() + "/" + entry.Name()
			data, err := os.ReadFile(path)
			if err != nil {
				return cli.Exit(err, 1)
			}
			var vectors []sstVector
			if err := json.Unmarshal(data, &vectors); err != nil {
				return cli.Exit(fmt.Errorf("%s: %w", path, err), 1)
			}
			for _, v := range vectors {
				bus := &flatBus{}
				for _, entry := range v.Initial.RAM {
					bus.mem[entry[0]&0xFFFFFF] = byte(entry[1])
				}
				c := m68k.New(false)
				c.SetBus(bus)
				c.Run(c.Cycles() + 1) // take the pending power-on reset first
				applySSTState(c, v.Initial)
				before := c.Cycles()
				c.Run(before + 1)
				ok := c.GetRegister(m68k.RegPC) == v.Final.PC &&
					c.GetRegister(m68k.RegD0) == v.Final.D0
				if ok {
					pass++
				} else {
					fail++
				}
			}
		}
		fmt.Printf("%d passed, %d failed\n", pass, fail)
		if fail > 0 {
			return cli.Exit("", 1)
		}
		return nil
	},
}

func parseUint32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	return uint32(v), err
}

// replCommand is an interactive monitor: step/run/registers/breakpoints
// over raw-mode stdin, with an optional Lua expression for a conditional
// breakpoint and a clipboard copy of the current register dump.
var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "interactive register/step monitor",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "load", Value: "0x1000"},
	},
	Action: func(ctx *cli.Context) error {
		loadAddr, err := parseUint32(ctx.String("load"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		bus := &flatBus{}
		if ctx.NArg() == 1 {
			if err := loadImage(bus, ctx.Args().First(), loadAddr); err != nil {
				return cli.Exit(err, 1)
			}
		}
		c := m68k.New(false)
		c.SetBus(bus)
		c.Run(c.Cycles() + 1) // take the pending power-on reset before setting PC/SSP
		c.SetRegister(m68k.RegPC, loadAddr)
		c.SetRegister(m68k.RegSSP, 0x00FFFFFE)

		if err := clipboard.Init(); err != nil {
			fmt.Fprintln(os.Stderr, "clipboard unavailable:", err)
		}

		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err == nil {
				defer term.Restore(fd, oldState)
			}
		}

		luaState := lua.NewState()
		defer luaState.Close()
		var watchExpr string

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("m68kmon> ")
		for {
			line, err := readLine(reader)
			if err != nil {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				fmt.Print("\r\nm68kmon> ")
				continue
			}
			switch fields[0] {
			case "q", "quit":
				return nil
			case "r", "regs":
				fmt.Print("\r\n" + strings.ReplaceAll(dumpRegisters(c), "\n", "\r\n"))
			case "s", "step":
				n := 1
				if len(fields) > 1 {
					if v, err := strconv.Atoi(fields[1]); err == nil {
						n = v
					}
				}
				for i := 0; i < n && !c.Halted(); i++ {
					c.Run(c.Cycles() + 1)
				}
				fmt.Print("\r\n" + strings.ReplaceAll(dumpRegisters(c), "\n", "\r\n"))
			case "watch":
				if len(fields) > 1 {
					watchExpr = strings.Join(fields[1:], " ")
					fmt.Printf("\r\nwatch set: %s\r\n", watchExpr)
				}
			case "run":
				for !c.Halted() && !c.Stopped() {
					c.Run(c.Cycles() + 1)
					if watchExpr != "" && luaWatchHit(luaState, c, watchExpr) {
						fmt.Printf("\r\nwatch %q triggered\r\n", watchExpr)
						break
					}
				}
				fmt.Print("\r\n" + strings.ReplaceAll(dumpRegisters(c), "\n", "\r\n"))
			case "copy":
				clipboard.Write(clipboard.FmtText, []byte(dumpRegisters(c)))
				fmt.Print("\r\nregister dump copied\r\n")
			case "help", "?":
				fmt.Print("\r\ncommands: regs, step [n], run, watch <lua expr>, copy, quit\r\n")
			default:
				fmt.Printf("\r\nunknown command %q (try help)\r\n", fields[0])
			}
			fmt.Print("\r\nm68kmon> ")
		}
	},
}

// readLine reads a CRLF/LF-terminated line from a raw-mode terminal,
// echoing printable characters and handling backspace.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '\r', '\n':
			return string(buf), nil
		case 0x7f, '\b':
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				fmt.Print("\b \b")
			}
		case 0x03: // Ctrl-C
			return "", fmt.Errorf("interrupted")
		default:
			buf = append(buf, b)
			fmt.Printf("%c", b)
		}
	}
}

// luaWatchHit evaluates expr as a Lua boolean expression with the CPU's
// data registers bound as d0..d7 globals, the common shape for a
// debugger's conditional-breakpoint scripting.
func luaWatchHit(L *lua.LState, c *m68k.CPU, expr string) bool {
	for i := m68k.RegD0; i <= m68k.RegD7; i++ {
		L.SetGlobal(fmt.Sprintf("d%d", i-m68k.RegD0), lua.LNumber(c.GetRegister(i)))
	}
	L.SetGlobal("pc", lua.LNumber(c.GetRegister(m68k.RegPC)))
	if err := L.DoString("__watch_result = (" + expr + ")"); err != nil {
		return false
	}
	result := L.GetGlobal("__watch_result")
	return lua.LVAsBool(result)
}
