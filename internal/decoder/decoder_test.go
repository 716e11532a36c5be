package decoder

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeFields(t *testing.T) {
	inst, err := Decode(0xD125)
	assert.NoError(t, err)
	assert.Equal(t, "DRW_v_v_n", inst.Tag)
	assert.Equal(t, 1, inst.Vx)
	assert.Equal(t, 2, inst.Vy)
	assert.Equal(t, byte(5), inst.Nibble)
}

func TestDecodeAddress(t *testing.T) {
	inst, err := Decode(0x1234)
	assert.NoError(t, err)
	assert.Equal(t, "JP_a", inst.Tag)
	assert.Equal(t, uint16(0x234), inst.Addr)
}

func TestDecodeIllegal(t *testing.T) {
	_, err := Decode(0x5001) // 0x5xy1 is not a valid low nibble for 5xy0
	assert.True(t, errors.Is(err, ErrIllegalOpcode))
}

func TestDecodeCLSandRET(t *testing.T) {
	inst, err := Decode(0x00E0)
	assert.NoError(t, err)
	assert.Equal(t, "CLS", inst.Tag)

	inst, err = Decode(0x00EE)
	assert.NoError(t, err)
	assert.Equal(t, "RET", inst.Tag)
}
