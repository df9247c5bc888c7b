// Package expr evaluates typed arithmetic expressions such as "2+3×4" with
// a small recursive-descent parser. Operators share the keypad's
// arithmetic, so errors match what the display would show.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"go-chi-calculator/internal/engine"
)

// Limits on accepted input.
const (
	MaxLength = 1024
	MaxDepth  = 64
)

var (
	ErrSyntax  = errors.New("syntax error")
	ErrTooLong = errors.New("expression too long")
	ErrTooDeep = errors.New("expression nested too deeply")
)

// Evaluate parses and evaluates src.
//
// Grammar, lowest precedence first:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "×" | "/" | "÷" | "%") unary }
//	unary   = ("-" | "+") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | "(" expr ")" | "√" primary | "sqrt" "(" expr ")"
//
// a % b is b percent of a, as on the keypad.
func Evaluate(src string) (float64, error) {
	if len(src) > MaxLength {
		return 0, ErrTooLong
	}
	if strings.TrimSpace(src) == "" {
		return 0, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	p := newParser(src)
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.err != nil {
		return 0, p.err
	}
	if p.tok != scanner.EOF {
		return 0, p.unexpected()
	}
	return v, nil
}

type parser struct {
	s     scanner.Scanner
	tok   rune
	depth int
	err   error
}

func newParser(src string) *parser {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = fmt.Errorf("%w: %s at %s", ErrSyntax, msg, s.Pos())
		}
	}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

func (p *parser) unexpected() error {
	if p.tok == scanner.EOF {
		return fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	return fmt.Errorf("%w: unexpected %q at %s", ErrSyntax, p.s.TokenText(), p.s.Position)
}

func (p *parser) expect(tok rune) error {
	if p.tok != tok {
		return p.unexpected()
	}
	p.next()
	return nil
}

func apply(op engine.Operation, a, b float64) (float64, error) {
	res := engine.PerformOperation(a, b, op)
	return res.Result, res.Err
}

func applyUnary(op engine.UnaryOperation, x float64) (float64, error) {
	res := engine.PerformUnaryOperation(x, op)
	return res.Result, res.Err
}

var additive = map[rune]engine.Operation{
	'+': engine.OpAdd,
	'-': engine.OpSubtract,
}

var multiplicative = map[rune]engine.Operation{
	'*': engine.OpMultiply,
	'×': engine.OpMultiply,
	'/': engine.OpDivide,
	'÷': engine.OpDivide,
	'%': engine.OpPercent,
}

func (p *parser) expr() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		return 0, ErrTooDeep
	}

	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := additive[p.tok]
		if !ok {
			return v, nil
		}
		p.next()
		r, err := p.term()
		if err != nil {
			return 0, err
		}
		if v, err = apply(op, v, r); err != nil {
			return 0, err
		}
	}
}

func (p *parser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := multiplicative[p.tok]
		if !ok {
			return v, nil
		}
		p.next()
		r, err := p.unary()
		if err != nil {
			return 0, err
		}
		if v, err = apply(op, v, r); err != nil {
			return 0, err
		}
	}
}

func (p *parser) unary() (float64, error) {
	switch p.tok {
	case '-':
		p.next()
		v, err := p.nested(p.unary)
		if err != nil {
			return 0, err
		}
		return applyUnary(engine.UnaryNegate, v)
	case '+':
		p.next()
		return p.nested(p.unary)
	}
	return p.power()
}

func (p *parser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if p.tok != '^' {
		return base, nil
	}
	p.next()
	exp, err := p.nested(p.unary)
	if err != nil {
		return 0, err
	}
	return apply(engine.OpPower, base, exp)
}

func (p *parser) primary() (float64, error) {
	switch p.tok {
	case scanner.Int, scanner.Float:
		v, err := strconv.ParseFloat(p.s.TokenText(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad number %q", ErrSyntax, p.s.TokenText())
		}
		p.next()
		return v, nil
	case '(':
		p.next()
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		return v, p.expect(')')
	case '√':
		p.next()
		v, err := p.nested(p.primary)
		if err != nil {
			return 0, err
		}
		return applyUnary(engine.UnarySqrt, v)
	case scanner.Ident:
		if p.s.TokenText() != "sqrt" {
			return 0, p.unexpected()
		}
		p.next()
		if err := p.expect('('); err != nil {
			return 0, err
		}
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(')'); err != nil {
			return 0, err
		}
		return applyUnary(engine.UnarySqrt, v)
	}
	return 0, p.unexpected()
}

// nested guards recursion that does not pass through expr.
func (p *parser) nested(fn func() (float64, error)) (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		return 0, ErrTooDeep
	}
	return fn()
}
