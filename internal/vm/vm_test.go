package vm

import (
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"

	"github.com/massung/chip8toolchain/internal/isa"
)

func mustNew(t *testing.T, rom []byte) *Machine {
	t.Helper()
	m, err := New(rom)
	assert.NoError(t, err)
	return m
}

func TestAddCarryFlag(t *testing.T) {
	rom := []byte{
		0x60, 0xFF, // LD V0, #FF
		0x61, 0x02, // LD V1, #02
		0x80, 0x14, // ADD V0, V1
	}
	m := mustNew(t, rom)

	for i := 0; i < 3; i++ {
		assert.NoError(t, m.Step(0))
	}

	assert.Equal(t, byte(0x01), m.v[0])
	assert.Equal(t, byte(1), m.v[0xF])
}

func TestSubBorrowFlag(t *testing.T) {
	rom := []byte{
		0x60, 0x01, // LD V0, #01
		0x61, 0x02, // LD V1, #02
		0x80, 0x15, // SUB V0, V1
	}
	m := mustNew(t, rom)
	for i := 0; i < 3; i++ {
		assert.NoError(t, m.Step(0))
	}
	assert.Equal(t, byte(0), m.v[0xF]) // V0 < V1: borrow occurred, VF cleared
}

func TestShrInPlace(t *testing.T) {
	rom := []byte{
		0x60, 0x03, // LD V0, #03
		0x80, 0x06, // SHR V0
	}
	m := mustNew(t, rom)
	for i := 0; i < 2; i++ {
		assert.NoError(t, m.Step(0))
	}
	assert.Equal(t, byte(1), m.v[0])
	assert.Equal(t, byte(1), m.v[0xF])
}

func TestRndMasksImmediateByte(t *testing.T) {
	rom := []byte{0xC0, 0x00} // RND V0, #00
	m := mustNew(t, rom)
	assert.NoError(t, m.Step(0))
	assert.Equal(t, byte(0), m.v[0])
}

func TestLoadSaveRegsDoNotMoveI(t *testing.T) {
	rom := []byte{
		0xA3, 0x00, // LD I, #300
		0x60, 0x11, // LD V0, #11
		0xF0, 0x55, // LD [I], V0
	}
	m := mustNew(t, rom)
	for i := 0; i < 3; i++ {
		assert.NoError(t, m.Step(0))
	}
	assert.Equal(t, uint16(0x300), m.i)
	assert.Equal(t, byte(0x11), m.memory[0x300])
}

func TestBcdConversion(t *testing.T) {
	rom := []byte{
		0xA3, 0x00, // LD I, #300
		0x60, 123, // LD V0, 123
		0xF0, 0x33, // LD B, V0
	}
	m := mustNew(t, rom)
	for i := 0; i < 3; i++ {
		assert.NoError(t, m.Step(0))
	}
	assert.Equal(t, byte(1), m.memory[0x300])
	assert.Equal(t, byte(2), m.memory[0x301])
	assert.Equal(t, byte(3), m.memory[0x302])
}

func TestDrawCollisionAndWraparound(t *testing.T) {
	rom := []byte{
		0xA0, byte(isa.FontBase), // LD I, font base (digit 0 sprite)
		0x60, 63, // LD V0, 63 (x: the sprite runs past the right edge)
		0x61, 0, // LD V1, 0
		0xD0, 0x15, // DRW V0, V1, 5
		0xD0, 0x15, // DRW V0, V1, 5 again: every set pixel collides
	}
	m := mustNew(t, rom)
	for i := 0; i < 4; i++ {
		assert.NoError(t, m.Step(0))
	}
	// top row 0xF0 lands in column 63 and wraps to columns 0..2
	assert.Equal(t, uint64(1)<<63|0x7, m.video[0])
	assert.Equal(t, byte(0), m.v[0xF])

	assert.NoError(t, m.Step(0))
	assert.Equal(t, byte(1), m.v[0xF])
}

func TestKeyWaitLatch(t *testing.T) {
	rom := []byte{0xF0, 0x0A} // LD V0, K
	m := mustNew(t, rom)

	assert.NoError(t, m.Step(0))
	assert.Equal(t, uint16(isa.ProgramBase), m.pc) // still parked on the same instruction

	m.SetKey(0x7)
	assert.NoError(t, m.Step(0))
	assert.Equal(t, byte(0x7), m.v[0])
	assert.Equal(t, uint16(isa.ProgramBase+2), m.pc)
}

func TestTimersDecrementAt60Hz(t *testing.T) {
	rom := []byte{
		0x60, 10, // LD V0, 10
		0xF0, 0x15, // LD DT, V0
	}
	m := mustNew(t, rom)
	assert.NoError(t, m.Step(0))
	assert.NoError(t, m.Step(0))
	assert.Equal(t, byte(10), m.dt)

	assert.NoError(t, m.Step(time.Second))
	assert.Equal(t, byte(0), m.dt)
}

func TestStackCallReturn(t *testing.T) {
	rom := []byte{
		0x22, 0x06, // CALL #206
		0x00, 0x00, // (skipped)
		0x00, 0x00,
		0x00, 0xEE, // RET
	}
	m := mustNew(t, rom)
	assert.NoError(t, m.Step(0))
	assert.Equal(t, uint16(0x206), m.pc)
	assert.NoError(t, m.Step(0))
	assert.Equal(t, uint16(isa.ProgramBase+2), m.pc)
}
