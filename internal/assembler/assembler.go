// Package assembler implements the two-pass CHIP-8 assembler described in
// SPEC_FULL.md §4.D: macro expansion, operand-shape matching against
// internal/rules, label resolution, and byte emission. Grounded on the
// teacher's asm.go Assembly/assemble* structure, reworked around the
// shared internal/isa table instead of one hand-written method per
// mnemonic.
package assembler

import (
	"strings"

	"github.com/massung/chip8toolchain/internal/diag"
	"github.com/massung/chip8toolchain/internal/isa"
	"github.com/massung/chip8toolchain/internal/lexer"
	"github.com/massung/chip8toolchain/internal/rules"
	"github.com/massung/chip8toolchain/internal/token"
)

// maxDiagnostics bounds how many errors a single Assemble call collects
// before giving up, matching the teacher's panic/recover budget.
const maxDiagnostics = 10

// Macro is a %define body: plain text, lexed in place of its name when that
// name is the first token of a statement, one expansion level deep. A macro
// name in operand position is not expanded.
type Macro struct {
	Name      string
	Body      string
	DefinedAt token.Position
}

// tokenSource is satisfied by both the primary lexer and an active macro
// expansion, so Parser.next can delegate to whichever is live.
type tokenSource interface {
	Next() token.Token
}

// macroExpansion is a secondary lexer over a macro's stored body, stamping
// every token it yields with the macro's origin for diagnostic trailers.
type macroExpansion struct {
	lex    *lexer.Lexer
	origin *token.MacroOrigin
}

func newExpansion(m *Macro) *macroExpansion {
	return &macroExpansion{
		lex:    lexer.New([]byte(m.Body)),
		origin: &token.MacroOrigin{Name: m.Name, DefinedAt: m.DefinedAt},
	}
}

func (e *macroExpansion) Next() token.Token {
	tok := e.lex.Next()
	if tok.Kind != token.Eof {
		tok.Origin = e.origin
	}
	return tok
}

type unresolvedRef struct {
	offset int // byte offset into rom
	label  string
	tok    token.Token
	full16 bool // true: patch the full 16-bit word (word directive); false: OR into low 12 bits of an opcode
}

// Parser owns all state for a single Assemble call. A fresh Parser is
// created per call; there is no package-level mutable state.
type Parser struct {
	src    []byte
	lex    *lexer.Lexer
	exp    *macroExpansion
	active tokenSource // p.lex, or p.exp while a macro expansion is live
	rule   *rules.Matcher

	macros map[string]*Macro
	equs   map[string]int
	labels map[string]uint16

	rom        []byte
	unresolved []unresolvedRef

	diags []*diag.Diagnostic
}

// New creates a Parser over src, ready to Run.
func New(src []byte) *Parser {
	p := &Parser{
		src:    src,
		lex:    lexer.New(src),
		rule:   rules.New(),
		macros: map[string]*Macro{},
		equs:   map[string]int{},
		labels: map[string]uint16{},
	}
	p.active = p.lex
	return p
}

// Assemble is the package entry point: lex, parse, resolve, and emit src
// in one call. It never panics outward; lexical and structural errors are
// recovered into Diagnostics.
func Assemble(src []byte) ([]byte, []*diag.Diagnostic) {
	p := New(src)
	return p.Run()
}

// Run drives the parser to completion.
func (p *Parser) Run() (rom []byte, diags []*diag.Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			if lexErr, ok := r.(*lexer.Error); ok {
				p.addDiagAt(lexErr.Position, lexErr.Message)
				rom, diags = nil, p.diags
				return
			}
			panic(r)
		}
	}()

	for {
		if len(p.diags) >= maxDiagnostics {
			break
		}
		if !p.statement() {
			break
		}
	}

	if len(p.diags) > 0 {
		return nil, p.diags
	}

	p.resolve()
	if len(p.diags) > 0 {
		return nil, p.diags
	}

	return p.rom, nil
}

func (p *Parser) next() token.Token {
	tok := p.active.Next()
	if tok.Kind == token.Eof && p.exp != nil {
		p.exp = nil
		p.active = p.lex
		return p.next()
	}
	return tok
}

func (p *Parser) address() uint16 {
	return isa.ProgramBase + uint16(len(p.rom))
}

func (p *Parser) lineText(pos token.Position) string {
	lines := strings.Split(string(p.src), "\n")
	if pos.Line-1 < 0 || pos.Line-1 >= len(lines) {
		return ""
	}
	return lines[pos.Line-1]
}

func (p *Parser) addDiag(tok token.Token, format string, args ...interface{}) {
	if len(p.diags) >= maxDiagnostics {
		return
	}
	p.diags = append(p.diags, diag.New(tok, p.lineText(tok.Position), format, args...))
}

func (p *Parser) addDiagAt(pos token.Position, format string, args ...interface{}) {
	if len(p.diags) >= maxDiagnostics {
		return
	}
	p.diags = append(p.diags, diag.Newf(pos, format, args...))
}

// skipToNewline discards tokens up to and including the next newline or
// EOF, for error recovery.
func (p *Parser) skipToNewline() {
	for {
		tok := p.next()
		if tok.Kind == token.Eof {
			return
		}
		if tok.Kind == token.Char && tok.Lexeme == "\n" {
			return
		}
	}
}

func isNewline(tok token.Token) bool {
	return tok.Kind == token.Char && tok.Lexeme == "\n"
}

// statement parses and emits one source line. It returns false at EOF.
func (p *Parser) statement() bool {
	tok := p.next()

	for isNewline(tok) {
		tok = p.next()
	}

	if tok.Kind == token.Eof {
		return false
	}

	switch {
	case tok.Kind == token.Identifier && p.exp == nil && p.macros[strings.ToUpper(tok.Lexeme)] != nil:
		p.exp = newExpansion(p.macros[strings.ToUpper(tok.Lexeme)])
		p.active = p.exp
		return true

	case tok.Kind == token.Identifier && strings.EqualFold(tok.Lexeme, "equ"):
		p.directiveEqu(tok)

	case tok.Kind == token.Identifier && strings.EqualFold(tok.Lexeme, "word"):
		p.directiveWord(tok)

	case tok.Kind == token.Identifier && strings.EqualFold(tok.Lexeme, "align"):
		p.directiveAlign(tok)

	case tok.Kind == token.Db:
		p.directiveDb(tok)

	case tok.Kind == token.Define:
		p.directiveDefine(tok)

	case tok.Kind == token.Identifier:
		p.labelDef(tok)

	case tok.Kind == token.Instruction:
		p.instruction(tok)

	default:
		p.addDiag(tok, "unexpected token %q", tok.Debug())
		p.skipToNewline()
	}

	return true
}

func (p *Parser) expectNewlineOrEof(after token.Token) {
	tok := p.next()
	if tok.Kind == token.Eof || isNewline(tok) {
		return
	}
	p.addDiag(tok, "unexpected trailing token %q after %q", tok.Debug(), after.Debug())
	p.skipToNewline()
}

// labelDef parses "NAME:" label definitions.
func (p *Parser) labelDef(name token.Token) {
	colon := p.next()
	if colon.Kind != token.Char || colon.Lexeme != ":" {
		p.addDiag(name, "%q is not an instruction, directive, or label definition", name.Lexeme)
		p.skipToNewline()
		return
	}

	upper := strings.ToUpper(name.Lexeme)
	if isa.SpecialRegisters[upper] || isa.Mnemonics[upper] {
		p.addDiag(name, "label %q collides with a reserved word", name.Lexeme)
	} else if _, exists := p.labels[name.Lexeme]; exists {
		p.addDiag(name, "label %q redefined", name.Lexeme)
	} else {
		p.labels[name.Lexeme] = p.address()
	}

	p.expectNewlineOrEof(colon)
}

func (p *Parser) directiveDefine(defTok token.Token) {
	name := p.next()
	if name.Kind != token.Identifier {
		p.addDiag(name, "%%define requires a name, got %q", name.Debug())
		p.skipToNewline()
		return
	}

	p.lex.ArmRawLine()
	body := p.next()

	upper := strings.ToUpper(name.Lexeme)
	if _, exists := p.macros[upper]; exists {
		p.addDiag(name, "macro %q redefined", name.Lexeme)
		return
	}

	p.macros[upper] = &Macro{Name: name.Lexeme, Body: body.Lexeme, DefinedAt: defTok.Position}
}

func (p *Parser) directiveEqu(eq token.Token) {
	name := p.next()
	if name.Kind != token.Identifier {
		p.addDiag(name, "equ requires a name, got %q", name.Debug())
		p.skipToNewline()
		return
	}

	value := p.next()
	if value.Kind != token.Immediate {
		p.addDiag(value, "equ %q requires a literal value, got %q", name.Lexeme, value.Debug())
		p.skipToNewline()
		return
	}

	if _, exists := p.equs[name.Lexeme]; exists {
		p.addDiag(name, "constant %q redefined", name.Lexeme)
	} else {
		p.equs[name.Lexeme] = value.Value
	}

	p.expectNewlineOrEof(value)
}

func (p *Parser) directiveWord(w token.Token) {
	operand := p.next()

	switch operand.Kind {
	case token.Immediate:
		v := p.rangeCheck(operand, 16)
		p.rom = append(p.rom, byte(v>>8), byte(v))
	case token.Identifier:
		if val, ok := p.equs[operand.Lexeme]; ok {
			v := p.rangeCheckValue(operand, val, 16)
			p.rom = append(p.rom, byte(v>>8), byte(v))
		} else {
			p.unresolved = append(p.unresolved, unresolvedRef{offset: len(p.rom), label: operand.Lexeme, tok: operand, full16: true})
			p.rom = append(p.rom, 0, 0)
		}
	default:
		p.addDiag(operand, "word requires a literal or label, got %q", operand.Debug())
		p.skipToNewline()
		return
	}

	p.expectNewlineOrEof(operand)
}

func (p *Parser) directiveAlign(a token.Token) {
	n := p.next()
	if n.Kind != token.Immediate || n.Value <= 0 || n.Value&(n.Value-1) != 0 {
		p.addDiag(n, "align requires a power-of-two literal, got %q", n.Debug())
		p.skipToNewline()
		return
	}

	for int(p.address())%n.Value != 0 {
		p.rom = append(p.rom, 0)
	}

	p.expectNewlineOrEof(n)
}

func (p *Parser) directiveDb(db token.Token) {
	last := db
	for {
		operand := p.next()
		if operand.Kind != token.Immediate {
			p.addDiag(operand, "db requires a byte literal, got %q", operand.Debug())
			p.skipToNewline()
			return
		}

		p.rom = append(p.rom, byte(p.rangeCheck(operand, 8)))
		last = operand

		comma := p.next()
		if comma.Kind == token.Char && comma.Lexeme == "," {
			continue
		}
		if comma.Kind == token.Eof || isNewline(comma) {
			return
		}
		p.addDiag(comma, "expected ',' or end of line after %q, got %q", last.Debug(), comma.Debug())
		p.skipToNewline()
		return
	}
}

// limitValue applies the documented limit_value(n, k) policy: a
// nonnegative n that fits in k bits passes through unchanged, a negative n
// whose magnitude is at most 2^(k-1) is returned as its k-bit two's
// complement, and anything else is out of range.
func limitValue(v, bits int) (int, bool) {
	max := (1 << bits) - 1
	if v >= 0 && v <= max {
		return v, true
	}
	if v < 0 && -v <= 1<<uint(bits-1) {
		return (1<<uint(bits) + v) & max, true
	}
	return 0, false
}

// rangeCheckValue applies limitValue to value and, on range failure, logs a
// diagnostic at tok's position and substitutes zero so the enclosing
// statement is still emitted (dependent diagnostics can still surface).
func (p *Parser) rangeCheckValue(tok token.Token, value, bits int) int {
	v, ok := limitValue(value, bits)
	if !ok {
		p.addDiag(tok, "immediate %d out of range for a %d-bit field", value, bits)
		return 0
	}
	return v
}

// rangeCheck is rangeCheckValue for a token whose own Value is the literal
// to check.
func (p *Parser) rangeCheck(tok token.Token, bits int) int {
	return p.rangeCheckValue(tok, tok.Value, bits)
}

// operandValues collects the operand tokens an instruction statement
// carries, keyed by the Role the rule matcher assigned each one.
type operandValues struct {
	regs   []int
	addr   *token.Token
	byteOp *token.Token
	nibble *token.Token
}

func (v *operandValues) capture(role rules.Role, tok token.Token) {
	switch role {
	case rules.RoleRegister:
		v.regs = append(v.regs, tok.Value)
	case rules.RoleAddress:
		t := tok
		v.addr = &t
	case rules.RoleByte:
		t := tok
		v.byteOp = &t
	case rules.RoleNibble:
		t := tok
		v.nibble = &t
	}
}

// instruction parses and emits one opcode statement by feeding tokens to
// the rule matcher until exactly one isa.Formats candidate survives.
func (p *Parser) instruction(mnemonic token.Token) {
	p.rule.Reset()

	var values operandValues

	role := p.rule.TryNext(mnemonic)
	if role == rules.RoleNone {
		p.addDiag(mnemonic, "%q is not a recognized instruction form", mnemonic.Lexeme)
		p.skipToNewline()
		return
	}

	for {
		if idx, ok := p.rule.Finish(); ok {
			p.emitInstruction(mnemonic, idx, values)
			p.expectNewlineOrEof(mnemonic)
			return
		}

		tok := p.next()
		if isNewline(tok) || tok.Kind == token.Eof {
			p.addDiag(mnemonic, "incomplete instruction %q", mnemonic.Lexeme)
			return
		}

		role = p.rule.TryNext(tok)
		if role == rules.RoleNone || role == rules.RoleAmbiguous {
			p.addDiag(tok, "unexpected operand %q for %q", tok.Debug(), mnemonic.Lexeme)
			p.skipToNewline()
			return
		}
		values.capture(role, tok)
	}
}

func (p *Parser) emitInstruction(mnemonic token.Token, formatIdx int, v operandValues) {
	opcode := isa.Formats[formatIdx].Mask

	if len(v.regs) >= 1 {
		opcode |= uint16(v.regs[0]) << isa.VxShift
	}
	if len(v.regs) >= 2 {
		opcode |= uint16(v.regs[1]) << isa.VyShift
	}
	if v.nibble != nil {
		opcode |= uint16(p.rangeCheck(*v.nibble, 4))
	}
	if v.byteOp != nil {
		byteVal, ok := p.resolveImmediate(*v.byteOp, 8)
		if !ok {
			return
		}
		opcode |= uint16(byteVal)
	}

	offset := len(p.rom)

	if v.addr != nil {
		switch v.addr.Kind {
		case token.Immediate:
			opcode |= uint16(p.rangeCheck(*v.addr, 12))
		case token.Identifier:
			if val, ok := p.equs[v.addr.Lexeme]; ok {
				opcode |= uint16(p.rangeCheckValue(*v.addr, val, 12))
			} else {
				p.unresolved = append(p.unresolved, unresolvedRef{offset: offset, label: v.addr.Lexeme, tok: *v.addr})
			}
		}
	}

	p.rom = append(p.rom, byte(opcode>>8), byte(opcode))
}

// resolveImmediate reads an immediate or equ-bound identifier as a k-bit
// value. Identifiers that are not equ constants (labels included) are an
// error: byte and nibble operands are never deferred to the resolution pass.
func (p *Parser) resolveImmediate(tok token.Token, bits int) (int, bool) {
	switch tok.Kind {
	case token.Immediate:
		return p.rangeCheck(tok, bits), true
	case token.Identifier:
		if val, ok := p.equs[tok.Lexeme]; ok {
			return p.rangeCheckValue(tok, val, bits), true
		}
		p.addDiag(tok, "undefined constant %q", tok.Lexeme)
		return 0, false
	default:
		p.addDiag(tok, "expected a literal value, got %q", tok.Debug())
		return 0, false
	}
}

// resolve patches every deferred label reference once all labels are
// known, the second of the assembler's two passes.
func (p *Parser) resolve() {
	for _, ref := range p.unresolved {
		addr, ok := p.labels[ref.label]
		if !ok {
			p.addDiag(ref.tok, "unknown label %q", ref.label)
			continue
		}

		if ref.full16 {
			p.rom[ref.offset] = byte(addr >> 8)
			p.rom[ref.offset+1] = byte(addr)
			continue
		}

		opcode := uint16(p.rom[ref.offset])<<8 | uint16(p.rom[ref.offset+1])
		opcode |= addr & isa.AddrMask
		p.rom[ref.offset] = byte(opcode >> 8)
		p.rom[ref.offset+1] = byte(opcode)
	}
}
