// Command m68kdemo is a minimal host harness exercising the core against
// a live video and audio sink: ebiten renders a plasma field driven by a
// phase byte the embedded 68000 program writes to a memory-mapped
// framebuffer register, and oto plays a square wave whose period tracks a
// second memory-mapped "PSG" register the same program writes.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/ebiten/v2"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/go68k/m68k"
)

const (
	screenW, screenH = 256, 192
	framebufAddr     = 0x00010000
	psgPeriodAddr    = 0x00020000
	programAddr      = 0x00001000
	sampleRate       = 44100
)

// demoProgram is a hand-assembled 68000 loop:
//
//	INIT: MOVEQ   #0,D0
//	LOOP: MOVE.B  D0,$00010000   ; phase byte -> framebuffer register
//	      MOVE.W  D0,$00020000   ; phase (zero-extended) -> PSG period
//	      ADDQ.B  #1,D0          ; wraps mod 256
//	      BRA     LOOP
var demoProgram = []byte{
	0x70, 0x00,
	0x13, 0xC0, 0x00, 0x01, 0x00, 0x00,
	0x33, 0xC0, 0x00, 0x02, 0x00, 0x00,
	0x52, 0x00,
	0x60, 0xF0,
}

// flatBus is a 16MB RAM bus, shared in spirit with m68kmon's but kept
// independent since the two commands are separate main packages.
type flatBus struct {
	mem [1 << 24]byte
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
func (b *flatBus) IntAck(level uint8) uint32 { return 0x100 + uint32(level) }
func (b *flatBus) ResetPulse(asserted bool)  {}

// squareWaveSource is an oto.Reader producing a square wave whose half
// period (in samples) tracks atomic.period, updated each video frame from
// the bus's PSG register.
type squareWaveSource struct {
	period atomic.Int64
	pos    int64
	high   bool
}

func (s *squareWaveSource) Read(p []byte) (int, error) {
	period := s.period.Load()
	if period <= 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	for i := 0; i+1 < len(p); i += 2 {
		var sample int16
		if s.high {
			sample = 8000
		} else {
			sample = -8000
		}
		p[i] = byte(sample)
		p[i+1] = byte(sample >> 8)
		s.pos++
		if s.pos >= period {
			s.pos = 0
			s.high = !s.high
		}
	}
	return len(p), nil
}

type demoGame struct {
	cpu       *m68k.CPU
	bus       *flatBus
	audio     *squareWaveSource
	cyclesPer int64
}

func (g *demoGame) Update() error {
	until := g.cpu.Cycles() + g.cyclesPer
	for g.cpu.Cycles() < until && !g.cpu.Halted() {
		g.cpu.Run(g.cpu.Cycles() + 1)
	}
	period := int64(g.bus.Read16(psgPeriodAddr))
	if period == 0 {
		period = 200
	}
	g.audio.period.Store(sampleRate / (2 * period))
	return nil
}

func (g *demoGame) Draw(screen *ebiten.Image) {
	phase := g.bus.Read8(framebufAddr)
	rgba := image.NewRGBA(image.Rect(0, 0, screenW, screenH))
	for y := 0; y < screenH; y++ {
		for x := 0; x < screenW; x++ {
			v := math.Sin(float64(x)/16+float64(phase)/12) + math.Cos(float64(y)/14+float64(phase)/20)
			shade := uint8((v + 2) / 4 * 255)
			rgba.Set(x, y, color.RGBA{shade, 255 - shade, shade / 2, 255})
		}
	}

	drawer := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 14),
	}
	drawer.DrawString(fmt.Sprintf("PC=%08X D0=%08X phase=%02X",
		g.cpu.GetRegister(m68k.RegPC), g.cpu.GetRegister(m68k.RegD0), phase))

	screen.WritePixels(rgba.Pix)
}

func (g *demoGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

func main() {
	app := &cli.App{
		Name:  "m68kdemo",
		Usage: "video/audio host harness for the m68k core",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "cycles-per-frame", Value: 20000, Usage: "CPU cycles executed per video frame"},
			&cli.BoolFlag{Name: "mute", Usage: "disable audio output"},
		},
		Action: runDemo,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDemo(ctx *cli.Context) error {
	bus := &flatBus{}
	copy(bus.mem[programAddr:], demoProgram)

	cpu := m68k.New(false)
	cpu.SetBus(bus)
	cpu.Run(cpu.Cycles() + 1) // take the pending power-on reset before setting PC/SSP
	cpu.SetRegister(m68k.RegPC, programAddr)
	cpu.SetRegister(m68k.RegSSP, 0x00FFFFFE)

	audio := &squareWaveSource{}

	group, gctx := errgroup.WithContext(context.Background())
	cancel := context.CancelFunc(func() {}) // replaced below if audio starts
	if !ctx.Bool("mute") {
		var audioCtx context.Context
		audioCtx, cancel = context.WithCancel(gctx)
		group.Go(func() error {
			op := &oto.NewContextOptions{
				SampleRate:   sampleRate,
				ChannelCount: 1,
				Format:       oto.FormatSignedInt16LE,
			}
			otoCtx, ready, err := oto.NewContext(op)
			if err != nil {
				return err
			}
			<-ready
			player := otoCtx.NewPlayer(audio)
			player.Play()
			<-audioCtx.Done()
			player.Close()
			return nil
		})
	}

	game := &demoGame{
		cpu:       cpu,
		bus:       bus,
		audio:     audio,
		cyclesPer: ctx.Int64("cycles-per-frame"),
	}

	ebiten.SetWindowSize(screenW*3, screenH*3)
	ebiten.SetWindowTitle("m68kdemo")

	// ebiten.RunGame blocks the calling goroutine until the window is
	// closed, so the CPU/video loop runs on the main goroutine; the
	// errgroup only coordinates the audio sink goroutine alongside it.
	runErr := ebiten.RunGame(game)
	cancel()
	if err := group.Wait(); err != nil {
		return err
	}
	if runErr != nil && runErr != ebiten.Termination {
		return runErr
	}
	return nil
}
