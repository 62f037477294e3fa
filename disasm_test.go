package m68k

import (
	"strings"
	"testing"
)

func noFetch(int) uint16 { panic("unexpected extension-word fetch") }

func TestDisassembleFixedMnemonics(t *testing.T) {
	tests := []struct {
		name, want string
		word0      uint16
	}{
		{"NOP", "NOP", 0x4E71},
		{"RESET", "RESET", 0x4E70},
		{"RTS", "RTS", 0x4E75},
		{"RTE", "RTE", 0x4E73},
		{"RTR", "RTR", 0x4E77},
		{"TRAPV", "TRAPV", 0x4E76},
		{"ILLEGAL", "ILLEGAL", 0x4AFC},
		{"MOVEQ", "MOVEQ", 0x7042},
		{"SWAP", "SWAP\tD0", 0x4840},
		{"EXT.W", "EXT.W\tD0", 0x4880},
		{"EXT.L", "EXT.L\tD0", 0x48C0},
		{"EXG", "EXG", 0xC141},
		{"TRAP", "TRAP\t#5", 0x4E45},
		{"UNLK", "UNLK\tA3", 0x4E5B},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, size := Disassemble(tt.word0, noFetch)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Disassemble(%#04x) = %q, want to contain %q", tt.word0, got, tt.want)
			}
			if size < 2 {
				t.Errorf("Disassemble(%#04x) size = %d, want >= 2", tt.word0, size)
			}
		})
	}
}

func TestDisassembleMoveRegisterDirect(t *testing.T) {
	// MOVE.B D1,D0
	got, size := Disassemble(0x1001, noFetch)
	if got != "MOVE.B\tD1,D0" {
		t.Errorf("got %q", got)
	}
	if size != 2 {
		t.Errorf("size = %d, want 2", size)
	}
}

func TestDisassembleAbsoluteWordExtension(t *testing.T) {
	fetch := func(off int) uint16 {
		if off == 0 {
			return 0x00FF
		}
		panic("unexpected extra fetch")
	}
	// MOVE.W $00FF.W,D0
	got, size := Disassemble(0x3038, fetch)
	if got != "MOVE.W\t$00FF.W,D0" {
		t.Errorf("got %q", got)
	}
	if size != 4 {
		t.Errorf("size = %d, want 4", size)
	}
}

func TestDisassembleBranches(t *testing.T) {
	got, size := Disassemble(0x6004, noFetch) // BRA +4
	if !strings.Contains(got, "BRA") {
		t.Errorf("got %q, want BRA", got)
	}
	if size != 2 {
		t.Errorf("size = %d, want 2", size)
	}

	fetch := func(int) uint16 { return 0x0100 }
	got, size = Disassemble(0x6700, fetch) // BEQ with word displacement
	if !strings.Contains(got, "BEQ") {
		t.Errorf("got %q, want BEQ", got)
	}
	if size != 4 {
		t.Errorf("size = %d, want 4", size)
	}
}

func TestDisassembleUnknownOpcodeFallsBackToDCW(t *testing.T) {
	got, size := Disassemble(0xFFFF, noFetch)
	if !strings.Contains(got, "DC.W") {
		t.Errorf("got %q, want a DC.W fallback", got)
	}
	if size != 2 {
		t.Errorf("size = %d, want 2", size)
	}
}
