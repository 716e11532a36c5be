// Package rules implements the operand-shape matcher described in
// SPEC_FULL.md §4.C: given the fixed isa.Formats table, it narrows a live
// set of candidate instruction formats one token at a time until either a
// single format survives or the candidate set collapses to none.
package rules

import (
	"fmt"
	"strings"

	"github.com/massung/chip8toolchain/internal/isa"
	"github.com/massung/chip8toolchain/internal/token"
)

// Role tells the parser what kind of value the token it just fed to
// TryNext should be interpreted as, so it can pull the right field
// (register index, address, byte, nibble) out of it.
type Role int

const (
	RoleNone Role = iota
	RoleWord
	RoleRegister
	RoleAddress
	RoleByte
	RoleNibble
	RolePunct
	RoleAmbiguous
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "None"
	case RoleWord:
		return "Word"
	case RoleRegister:
		return "Register"
	case RoleAddress:
		return "Address"
	case RoleByte:
		return "Byte"
	case RoleNibble:
		return "Nibble"
	case RolePunct:
		return "Punct"
	case RoleAmbiguous:
		return "Ambiguous"
	default:
		return "?"
	}
}

type elemKind int

const (
	elemWord elemKind = iota
	elemRegister
	elemAddress
	elemByte
	elemNibble
	elemComma
	elemLBracket
	elemRBracket
)

type elem struct {
	kind elemKind
	word string // literal text, uppercased, only meaningful when kind == elemWord
}

// compile splits a Format.Pattern such as "LD [I], v" into its element
// sequence. Spaces separate tokens; ',', '[', ']' are punctuation tokens in
// their own right even when not space-separated.
func compile(pattern string) []elem {
	var elems []elem
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		elems = append(elems, classify(word.String()))
		word.Reset()
	}

	for _, r := range pattern {
		switch r {
		case ' ':
			flush()
		case ',':
			flush()
			elems = append(elems, elem{kind: elemComma})
		case '[':
			flush()
			elems = append(elems, elem{kind: elemLBracket})
		case ']':
			flush()
			elems = append(elems, elem{kind: elemRBracket})
		default:
			word.WriteRune(r)
		}
	}
	flush()

	return elems
}

func classify(word string) elem {
	switch word {
	case "v":
		return elem{kind: elemRegister}
	case "a":
		return elem{kind: elemAddress}
	case "b":
		return elem{kind: elemByte}
	case "n":
		return elem{kind: elemNibble}
	default:
		return elem{kind: elemWord, word: strings.ToUpper(word)}
	}
}

func roleOf(k elemKind) Role {
	switch k {
	case elemWord:
		return RoleWord
	case elemRegister:
		return RoleRegister
	case elemAddress:
		return RoleAddress
	case elemByte:
		return RoleByte
	case elemNibble:
		return RoleNibble
	case elemComma, elemLBracket, elemRBracket:
		return RolePunct
	default:
		return RoleNone
	}
}

// candidate is a compiled Format plus its index in isa.Formats.
type candidate struct {
	index   int
	pattern []elem
}

var compiled []candidate

func init() {
	compiled = make([]candidate, len(isa.Formats))
	for i, f := range isa.Formats {
		compiled[i] = candidate{index: i, pattern: compile(f.Pattern)}
	}
	assertUnambiguous()
}

// assertUnambiguous is a programmer-error self-test, run once at package
// init: no two formats may share the exact same literal-word skeleton,
// since that would make them indistinguishable to the matcher regardless
// of what the parser feeds it.
func assertUnambiguous() {
	seen := map[string]string{}
	for _, c := range compiled {
		key := skeleton(c.pattern)
		if prev, ok := seen[key]; ok {
			panic(fmt.Sprintf("rules: formats %q and %q share skeleton %q",
				prev, isa.Formats[c.index].Tag, key))
		}
		seen[key] = isa.Formats[c.index].Tag
	}
}

func skeleton(pattern []elem) string {
	var b strings.Builder
	for _, e := range pattern {
		switch e.kind {
		case elemWord:
			b.WriteString(e.word)
		case elemRegister:
			b.WriteByte('v')
		case elemAddress:
			b.WriteByte('a')
		case elemByte:
			b.WriteByte('b')
		case elemNibble:
			b.WriteByte('n')
		case elemComma:
			b.WriteByte(',')
		case elemLBracket:
			b.WriteByte('[')
		case elemRBracket:
			b.WriteByte(']')
		}
		b.WriteByte(' ')
	}
	return b.String()
}

// Matcher tracks the set of isa.Formats still consistent with the tokens
// seen so far in the current statement.
type Matcher struct {
	alive   uint64 // bit i set means compiled[i] is still a candidate
	pos     int
	matched int // isa.Formats index once exactly one candidate remains and its pattern is exhausted, else -1
}

// New creates a Matcher ready for a fresh statement.
func New() *Matcher {
	m := &Matcher{}
	m.Reset()
	return m
}

// Reset clears the candidate set back to all 35 formats.
func (m *Matcher) Reset() {
	m.alive = (uint64(1) << uint(len(compiled))) - 1
	m.pos = 0
	m.matched = -1
}

// aliveCount returns how many candidates remain.
func (m *Matcher) aliveCount() int {
	n := 0
	for i := 0; i < len(compiled); i++ {
		if m.alive&(1<<uint(i)) != 0 {
			n++
		}
	}
	return n
}

// tokenMatchesElem reports whether tok structurally satisfies e at the
// current position: word elements compare literal text, register/address/
// byte/nibble elements accept any token that could carry that kind of
// value, and punctuation elements match single-character Char tokens.
func tokenMatchesElem(tok token.Token, e elem) bool {
	switch e.kind {
	case elemWord:
		switch tok.Kind {
		case token.Instruction, token.SpecialRegister:
			return strings.EqualFold(tok.Lexeme, e.word)
		case token.Register:
			return strings.EqualFold(tok.Lexeme, e.word)
		default:
			return false
		}
	case elemRegister:
		return tok.Kind == token.Register
	case elemAddress:
		return tok.Kind == token.Immediate || tok.Kind == token.Identifier
	case elemByte:
		return tok.Kind == token.Immediate || tok.Kind == token.Identifier
	case elemNibble:
		return tok.Kind == token.Immediate
	case elemComma:
		return tok.Kind == token.Char && tok.Lexeme == ","
	case elemLBracket:
		return tok.Kind == token.Char && tok.Lexeme == "["
	case elemRBracket:
		return tok.Kind == token.Char && tok.Lexeme == "]"
	default:
		return false
	}
}

// TryNext advances the matcher by one token, killing every candidate whose
// pattern disagrees with tok at the current position. It returns the Role
// the surviving candidates agree tok plays, or RoleNone if every candidate
// died, or RoleAmbiguous if survivors disagree on the role (a table defect;
// assertUnambiguous only rejects identical skeletons and does not detect it).
func (m *Matcher) TryNext(tok token.Token) Role {
	var next uint64
	role := RoleNone
	conflict := false

	for i, c := range compiled {
		if m.alive&(1<<uint(i)) == 0 {
			continue
		}
		if m.pos >= len(c.pattern) {
			continue // this candidate already exhausted; extra tokens kill it
		}
		e := c.pattern[m.pos]
		if !tokenMatchesElem(tok, e) {
			continue
		}
		next |= 1 << uint(i)
		r := roleOf(e.kind)
		if role == RoleNone {
			role = r
		} else if role != r {
			conflict = true
		}
	}

	m.alive = next
	m.pos++

	if next == 0 {
		return RoleNone
	}
	if conflict {
		return RoleAmbiguous
	}
	return role
}

// Finish reports whether exactly one candidate remains and it has consumed
// its whole pattern; if so it returns that format's index into
// isa.Formats.
func (m *Matcher) Finish() (int, bool) {
	if m.aliveCount() != 1 {
		return -1, false
	}
	for i, c := range compiled {
		if m.alive&(1<<uint(i)) == 0 {
			continue
		}
		if m.pos != len(c.pattern) {
			return -1, false
		}
		m.matched = i
		return i, true
	}
	return -1, false
}

// Alive reports how many formats are still consistent with the tokens fed
// so far: 0 means no format matches, more than 1 means the prefix is still
// ambiguous.
func (m *Matcher) Alive() int {
	return m.aliveCount()
}
