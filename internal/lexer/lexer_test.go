package lexer

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/massung/chip8toolchain/internal/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New([]byte(src))
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.Eof {
			return toks
		}
	}
}

func TestLexInstructionLine(t *testing.T) {
	toks := scanAll(t, "LD V0, 0xFF\n")

	assert.Equal(t, token.Instruction, toks[0].Kind)
	assert.Equal(t, token.Register, toks[1].Kind)
	assert.Equal(t, 0, toks[1].Value)
	assert.Equal(t, token.Char, toks[2].Kind)
}

func TestLexNumberBases(t *testing.T) {
	cases := map[string]int{
		"0x10": 16,
		"0b10": 2,
		"0o10": 8,
		"10":   10,
	}
	for src, want := range cases {
		toks := scanAll(t, src)
		assert.Equal(t, token.Immediate, toks[0].Kind)
		assert.Equal(t, want, toks[0].Value)
	}
}

func TestLexNegativeNumber(t *testing.T) {
	toks := scanAll(t, "-5")
	assert.Equal(t, token.Immediate, toks[0].Kind)
	assert.Equal(t, -5, toks[0].Value)
}

func TestLexSpecialRegisters(t *testing.T) {
	toks := scanAll(t, "DT ST I F B K")
	for i := 0; i < 6; i++ {
		assert.Equal(t, token.SpecialRegister, toks[i].Kind)
	}
}

func TestLexIdentifierIsNotKeyword(t *testing.T) {
	toks := scanAll(t, "loop")
	assert.Equal(t, token.Identifier, toks[0].Kind)
}

func TestLexDb(t *testing.T) {
	toks := scanAll(t, "db 1, 2, 3")
	assert.Equal(t, token.Db, toks[0].Kind)
}

func TestLexDefineAndRawLine(t *testing.T) {
	l := New([]byte("%define FOO LD V0, 1\n"))

	defTok := l.Next()
	assert.Equal(t, token.Define, defTok.Kind)

	nameTok := l.Next()
	assert.Equal(t, token.Identifier, nameTok.Kind)
	assert.Equal(t, "FOO", nameTok.Lexeme)

	l.ArmRawLine()
	body := l.Next()
	assert.Equal(t, token.Raw, body.Kind)
	assert.Equal(t, "LD V0, 1", body.Lexeme)
}

func TestLexCommentSkipped(t *testing.T) {
	toks := scanAll(t, "; a comment\nLD V0, 1\n")
	assert.Equal(t, token.Char, toks[0].Kind) // the comment itself produces no token
}

func TestLexNewlineIsCharTen(t *testing.T) {
	toks := scanAll(t, "\n")
	assert.Equal(t, token.Char, toks[0].Kind)
	assert.Equal(t, 10, toks[0].Value)
}

func TestLexOverflowPanics(t *testing.T) {
	defer func() {
		r := recover()
		assert.NotNil(t, r)
	}()
	scanAll(t, "0xFFFFFFFFFFFFFFFFFFFFFFFF")
}
