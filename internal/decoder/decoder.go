// Package decoder classifies a raw 16-bit CHIP-8 instruction word into one
// of the 35 isa.Formats tags and extracts its operand fields, per
// SPEC_FULL.md §4.E. The assembler's emitter and this package are both
// built from the same internal/isa table so the two can never disagree on
// how a field is packed.
package decoder

import (
	"errors"

	"github.com/massung/chip8toolchain/internal/isa"
)

// ErrIllegalOpcode is returned by Decode when word matches no known
// instruction shape.
var ErrIllegalOpcode = errors.New("decoder: illegal opcode")

// Instruction is a decoded 16-bit word: which format it matched, plus the
// fields extracted at that format's fixed bit offsets. Fields that don't
// apply to Tag are left zero.
type Instruction struct {
	Tag    string
	Vx     int
	Vy     int
	Addr   uint16
	Byte   byte
	Nibble byte
}

// Decode classifies word and extracts its fields. A fixed switch masks word
// against the bits each format's encoding pins down; the patterns mirror the
// masks in isa.Formats but are written out here rather than read from it.
func Decode(word uint16) (Instruction, error) {
	vx := int((word >> isa.VxShift) & 0xF)
	vy := int((word >> isa.VyShift) & 0xF)
	addr := word & isa.AddrMask
	imm := byte(word & isa.ByteMask)
	nibble := byte(word & isa.NibbleMask)

	switch {
	case word == 0x00E0:
		return Instruction{Tag: "CLS"}, nil
	case word == 0x00EE:
		return Instruction{Tag: "RET"}, nil
	case word&0xF000 == 0x0000:
		return Instruction{Tag: "SYS_a", Addr: addr}, nil
	case word&0xF000 == 0x1000:
		return Instruction{Tag: "JP_a", Addr: addr}, nil
	case word&0xF000 == 0x2000:
		return Instruction{Tag: "CALL_a", Addr: addr}, nil
	case word&0xF000 == 0x3000:
		return Instruction{Tag: "SE_v_b", Vx: vx, Byte: imm}, nil
	case word&0xF000 == 0x4000:
		return Instruction{Tag: "SNE_v_b", Vx: vx, Byte: imm}, nil
	case word&0xF00F == 0x5000:
		return Instruction{Tag: "SE_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF000 == 0x6000:
		return Instruction{Tag: "LD_v_b", Vx: vx, Byte: imm}, nil
	case word&0xF000 == 0x7000:
		return Instruction{Tag: "ADD_v_b", Vx: vx, Byte: imm}, nil
	case word&0xF00F == 0x8000:
		return Instruction{Tag: "LD_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF00F == 0x8001:
		return Instruction{Tag: "OR_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF00F == 0x8002:
		return Instruction{Tag: "AND_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF00F == 0x8003:
		return Instruction{Tag: "XOR_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF00F == 0x8004:
		return Instruction{Tag: "ADD_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF00F == 0x8005:
		return Instruction{Tag: "SUB_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF00F == 0x8006:
		return Instruction{Tag: "SHR_v", Vx: vx}, nil
	case word&0xF00F == 0x8007:
		return Instruction{Tag: "SUBN_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF00F == 0x800E:
		return Instruction{Tag: "SHL_v", Vx: vx}, nil
	case word&0xF00F == 0x9000:
		return Instruction{Tag: "SNE_v_v", Vx: vx, Vy: vy}, nil
	case word&0xF000 == 0xA000:
		return Instruction{Tag: "LD_I_a", Addr: addr}, nil
	case word&0xF000 == 0xB000:
		return Instruction{Tag: "JP_V0_a", Addr: addr}, nil
	case word&0xF000 == 0xC000:
		return Instruction{Tag: "RND_v_b", Vx: vx, Byte: imm}, nil
	case word&0xF000 == 0xD000:
		return Instruction{Tag: "DRW_v_v_n", Vx: vx, Vy: vy, Nibble: nibble}, nil
	case word&0xF0FF == 0xE09E:
		return Instruction{Tag: "SKP_v", Vx: vx}, nil
	case word&0xF0FF == 0xE0A1:
		return Instruction{Tag: "SKNP_v", Vx: vx}, nil
	case word&0xF0FF == 0xF007:
		return Instruction{Tag: "LD_v_DT", Vx: vx}, nil
	case word&0xF0FF == 0xF00A:
		return Instruction{Tag: "LD_v_K", Vx: vx}, nil
	case word&0xF0FF == 0xF015:
		return Instruction{Tag: "LD_DT_v", Vx: vx}, nil
	case word&0xF0FF == 0xF018:
		return Instruction{Tag: "LD_ST_v", Vx: vx}, nil
	case word&0xF0FF == 0xF01E:
		return Instruction{Tag: "ADD_I_v", Vx: vx}, nil
	case word&0xF0FF == 0xF029:
		return Instruction{Tag: "LD_F_v", Vx: vx}, nil
	case word&0xF0FF == 0xF033:
		return Instruction{Tag: "LD_B_v", Vx: vx}, nil
	case word&0xF0FF == 0xF055:
		return Instruction{Tag: "LD_IM_v", Vx: vx}, nil
	case word&0xF0FF == 0xF065:
		return Instruction{Tag: "LD_v_IM", Vx: vx}, nil
	default:
		return Instruction{}, ErrIllegalOpcode
	}
}
