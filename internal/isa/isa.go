// Package isa holds the fixed CHIP-8 instruction-set specification: the 35
// operand patterns, their masked opcode templates, and the font sprites
// loaded into the bottom of RAM. Both the assembler and the interpreter are
// built against this one table so neither can drift from the other on how
// an instruction is shaped.
package isa

// Field bit offsets, shared by the assembler's emitter and the decoder's
// field extraction.
const (
	VxShift = 8
	VyShift = 4

	AddrMask   = 0x0FFF
	ByteMask   = 0x00FF
	NibbleMask = 0x000F
)

// Format describes one of the 35 CHIP-8 instructions: its tag, its operand
// pattern (mnemonic text plus 'v'/'a'/'b'/'n' placeholders and punctuation,
// as spec.md §4.A defines), and its masked opcode template (operand bits
// zero).
type Format struct {
	Tag     string
	Pattern string
	Mask    uint16
}

// Formats is the fixed, ordered table of all 35 CHIP-8 instructions.
var Formats = []Format{
	{"CLS", "CLS", 0x00E0},
	{"RET", "RET", 0x00EE},
	{"SYS_a", "SYS a", 0x0000},
	{"JP_a", "JP a", 0x1000},
	{"CALL_a", "CALL a", 0x2000},
	{"SE_v_b", "SE v, b", 0x3000},
	{"SNE_v_b", "SNE v, b", 0x4000},
	{"SE_v_v", "SE v, v", 0x5000},
	{"LD_v_b", "LD v, b", 0x6000},
	{"ADD_v_b", "ADD v, b", 0x7000},
	{"LD_v_v", "LD v, v", 0x8000},
	{"OR_v_v", "OR v, v", 0x8001},
	{"AND_v_v", "AND v, v", 0x8002},
	{"XOR_v_v", "XOR v, v", 0x8003},
	{"ADD_v_v", "ADD v, v", 0x8004},
	{"SUB_v_v", "SUB v, v", 0x8005},
	{"SHR_v", "SHR v", 0x8006},
	{"SUBN_v_v", "SUBN v, v", 0x8007},
	{"SHL_v", "SHL v", 0x800E},
	{"SNE_v_v", "SNE v, v", 0x9000},
	{"LD_I_a", "LD I, a", 0xA000},
	{"JP_V0_a", "JP V0, a", 0xB000},
	{"RND_v_b", "RND v, b", 0xC000},
	{"DRW_v_v_n", "DRW v, v, n", 0xD000},
	{"SKP_v", "SKP v", 0xE09E},
	{"SKNP_v", "SKNP v", 0xE0A1},
	{"LD_v_DT", "LD v, DT", 0xF007},
	{"LD_v_K", "LD v, K", 0xF00A},
	{"LD_DT_v", "LD DT, v", 0xF015},
	{"LD_ST_v", "LD ST, v", 0xF018},
	{"ADD_I_v", "ADD I, v", 0xF01E},
	{"LD_F_v", "LD F, v", 0xF029},
	{"LD_B_v", "LD B, v", 0xF033},
	{"LD_IM_v", "LD [I], v", 0xF055},
	{"LD_v_IM", "LD v, [I]", 0xF065},
}

// ByTag looks up a Format by its tag.
func ByTag(tag string) (Format, bool) {
	for _, f := range Formats {
		if f.Tag == tag {
			return f, true
		}
	}
	return Format{}, false
}

// FontBase is the RAM address the built-in font sprites are copied to.
const FontBase = 0x000

// FontSpriteSize is the number of bytes per font glyph.
const FontSpriteSize = 5

// Font holds the 16 built-in 5-byte hex digit sprites, 0 through F.
var Font = [16 * FontSpriteSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// ProgramBase is where an assembled ROM is loaded into machine memory.
const ProgramBase = 0x200

// SpecialRegisters are the reserved non-general-purpose register names. A
// label may not be named after one of these (spec.md §4.D).
var SpecialRegisters = map[string]bool{
	"F": true, "B": true, "I": true, "K": true, "DT": true, "ST": true,
}

// Mnemonics are the distinct instruction keywords recognized by the lexer,
// independent of operand shape (several map to more than one Format).
var Mnemonics = map[string]bool{
	"CLS": true, "RET": true, "SYS": true, "JP": true, "CALL": true,
	"SE": true, "SNE": true, "LD": true, "ADD": true, "OR": true,
	"AND": true, "XOR": true, "SUB": true, "SHR": true, "SUBN": true,
	"SHL": true, "RND": true, "DRW": true, "SKP": true, "SKNP": true,
}
