// Package diag implements the assembler's positioned diagnostics, per
// SPEC_FULL.md §4.G: one concrete Diagnostic type carrying enough context
// to render a source-line-and-caret report, grounded on the typed,
// position-bearing error structs golc3's assembler package uses.
package diag

import (
	"fmt"
	"strings"

	"github.com/massung/chip8toolchain/internal/token"
)

// Kind classifies a Diagnostic.
type Kind int

const (
	Error Kind = iota
	Warning
)

func (k Kind) String() string {
	if k == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a single positioned assembler complaint.
type Diagnostic struct {
	Kind        Kind
	Pos         token.Position
	Message     string
	Line        string // source text of Pos.Line, for the caret
	Token       token.Token
	MacroOrigin *token.MacroOrigin
}

// Error satisfies the error interface with a compact one-line rendering,
// for callers (cobra command handlers, log lines) that don't need the
// full caret display.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
}

// Format renders the full multi-line diagnostic: message, source line, a
// caret under the offending token, and a macro-origin trailer when the
// token came from an expansion.
func (d *Diagnostic) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s: %s\n", d.Pos, d.Kind, d.Message)

	if d.Line != "" {
		b.WriteString(d.Line)
		b.WriteByte('\n')

		col := d.Pos.Column
		if col < 1 {
			col = 1
		}
		b.WriteString(strings.Repeat(" ", col-1))

		width := len(d.Token.Lexeme)
		if width < 1 {
			width = 1
		}
		b.WriteString(strings.Repeat("^", width))
		b.WriteByte('\n')
	}

	if d.MacroOrigin != nil {
		fmt.Fprintf(&b, "\tin expansion of macro %q defined at %s\n",
			d.MacroOrigin.Name, d.MacroOrigin.DefinedAt)
	}

	return b.String()
}

// New builds an error-kind Diagnostic at tok's position.
func New(tok token.Token, line string, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:        Error,
		Pos:         tok.Position,
		Message:     fmt.Sprintf(format, args...),
		Line:        line,
		Token:       tok,
		MacroOrigin: tok.Origin,
	}
}

// Newf builds an error-kind Diagnostic at an explicit position, for cases
// (end-of-input, unresolved labels) with no single offending token.
func Newf(pos token.Position, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:    Error,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	}
}
