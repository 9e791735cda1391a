package sig

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

// ParamKind classifies a parsed parameter before the builder interprets it.
type ParamKind int

// Parameter kinds.
const (
	// ParamContext is a bare identifier with no type annotation: the
	// host-side runtime handle. It never reaches the emitted signature.
	ParamContext ParamKind = iota
	// ParamSelfRef is an immutable receiver (&self).
	ParamSelfRef
	// ParamSelfMut is a mutable receiver (&mut self).
	ParamSelfMut
	// ParamUser is a user-facing "name: Type" parameter.
	ParamUser
)

// Param is one parsed parameter.
type Param struct {
	Kind ParamKind
	Name string
	Type decl.TypeRef // ParamUser only
}

// Parsed is the result of parsing one raw signature.
type Parsed struct {
	Name     string
	Params   []Param
	Return   decl.TypeRef // Unit when no return annotation
	Fallible bool
}

// Receiver returns the receiver parameter kind, or ParamUser and false
// when the signature has no receiver.
func (p Parsed) Receiver() (ParamKind, bool) {
	for _, prm := range p.Params {
		if prm.Kind == ParamSelfRef || prm.Kind == ParamSelfMut {
			return prm.Kind, true
		}
	}
	return ParamUser, false
}

// HasContext reports whether the signature carries the leading context
// parameter.
func (p Parsed) HasContext() bool {
	for _, prm := range p.Params {
		if prm.Kind == ParamContext {
			return true
		}
	}
	return false
}

// UserParams returns only the user-facing parameters, in order.
func (p Parsed) UserParams() []Param {
	var out []Param
	for _, prm := range p.Params {
		if prm.Kind == ParamUser {
			out = append(out, prm)
		}
	}
	return out
}

// Error is a signature parse failure with the offending column.
type Error struct {
	Pos     token.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("col %d: %s", e.Pos.Column, e.Message)
}

// Parse parses raw signature text of the form
//
//	name(params) [-> Type] [!]
//
// where params is a comma-separated list of a context identifier, an
// optional "&self" / "&mut self" receiver, and "name: Type" pairs.
func Parse(input string) (Parsed, error) {
	p := &parser{lexer: NewLexer(input), input: input}
	p.next()
	p.next() // fill cur and peek
	return p.parseSignature()
}

// ParseType parses a standalone host type expression.
func ParseType(input string) (decl.TypeRef, error) {
	p := &parser{lexer: NewLexer(input), input: input}
	p.next()
	p.next()
	ty, err := p.parseType()
	if err != nil {
		return decl.TypeRef{}, err
	}
	if p.cur.Type != TOKEN_EOF {
		return decl.TypeRef{}, p.errorf("unexpected %q after type", p.cur.Literal)
	}
	return ty, nil
}

type parser struct {
	lexer *Lexer
	input string
	cur   Token
	peek  Token
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *parser) errorf(format string, args ...any) error {
	return &Error{Pos: p.cur.Pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(t TokenType, what string) error {
	if p.cur.Type != t {
		return p.errorf("expected %s, got %q", what, p.cur.Literal)
	}
	p.next()
	return nil
}

func (p *parser) parseSignature() (Parsed, error) {
	var out Parsed

	if p.cur.Type != TOKEN_IDENT {
		return out, p.errorf("expected function name, got %q", p.cur.Literal)
	}
	out.Name = p.cur.Literal
	p.next()

	if err := p.expect(TOKEN_LPAREN, `"("`); err != nil {
		return out, err
	}

	for p.cur.Type != TOKEN_RPAREN {
		param, err := p.parseParam()
		if err != nil {
			return out, err
		}
		out.Params = append(out.Params, param)

		if p.cur.Type == TOKEN_COMMA {
			p.next()
			continue
		}
		if p.cur.Type != TOKEN_RPAREN {
			return out, p.errorf(`expected "," or ")", got %q`, p.cur.Literal)
		}
	}
	p.next() // consume ")"

	out.Return = decl.Unit()
	if p.cur.Type == TOKEN_ARROW {
		p.next()
		ret, err := p.parseType()
		if err != nil {
			return out, err
		}
		out.Return = ret
	}

	if p.cur.Type == TOKEN_BANG {
		out.Fallible = true
		p.next()
	}

	if p.cur.Type != TOKEN_EOF {
		return out, p.errorf("unexpected %q after signature", p.cur.Literal)
	}
	return out, nil
}

func (p *parser) parseParam() (Param, error) {
	// Receiver: "&self" or "&mut self".
	if p.cur.Type == TOKEN_AMP {
		p.next()
		kind := ParamSelfRef
		if p.cur.Type == TOKEN_IDENT && p.cur.Literal == "mut" {
			kind = ParamSelfMut
			p.next()
		}
		if p.cur.Type != TOKEN_IDENT || p.cur.Literal != "self" {
			return Param{}, p.errorf(`expected "self" after "&", got %q`, p.cur.Literal)
		}
		p.next()
		return Param{Kind: kind, Name: "self"}, nil
	}

	// Bare type used positionally, as in a setter's "(ctx, &mut self, f32)".
	if p.cur.Type != TOKEN_IDENT || p.peek.Type == TOKEN_LT {
		ty, err := p.parseType()
		if err != nil {
			return Param{}, err
		}
		return Param{Kind: ParamUser, Type: ty}, nil
	}

	name := p.cur.Literal
	p.next()

	// A bare identifier with no annotation is the context parameter —
	// unless it spells a known type, in which case it is a positional
	// typed parameter.
	if p.cur.Type != TOKEN_COLON {
		if _, ok := decl.LookupPrimitive(name); ok {
			return Param{Kind: ParamUser, Type: decl.Primitive(mustPrim(name))}, nil
		}
		if name == "Self" {
			return Param{Kind: ParamUser, Type: decl.SelfType()}, nil
		}
		return Param{Kind: ParamContext, Name: name}, nil
	}
	p.next() // consume ":"

	ty, err := p.parseType()
	if err != nil {
		return Param{}, err
	}
	return Param{Kind: ParamUser, Name: name, Type: ty}, nil
}

// parseType parses one host type expression into a TypeRef.
func (p *parser) parseType() (decl.TypeRef, error) {
	switch p.cur.Type {
	case TOKEN_AMP:
		// References marshal by value across the boundary; the
		// referent decides the mapping.
		p.next()
		if p.cur.Type == TOKEN_IDENT && p.cur.Literal == "mut" {
			p.next()
		}
		return p.parseType()

	case TOKEN_LPAREN:
		p.next()
		if p.cur.Type != TOKEN_RPAREN {
			return decl.TypeRef{}, p.errorf("only the unit tuple is supported, got %q", p.cur.Literal)
		}
		p.next()
		return decl.Unit(), nil

	case TOKEN_IDENT:
		name := p.cur.Literal
		start := p.cur.Pos.Offset
		p.next()

		if p.cur.Type == TOKEN_LT {
			return p.parseGeneric(name, start)
		}

		if name == "Self" {
			return decl.SelfType(), nil
		}
		if kind, ok := decl.LookupPrimitive(name); ok {
			return decl.Primitive(kind), nil
		}
		return decl.Named(name), nil

	default:
		return decl.TypeRef{}, p.errorf("expected type, got %q", p.cur.Literal)
	}
}

// parseGeneric parses "name<...>". Option and Vec are the only generic
// forms with a mapping; everything else becomes Unsupported carrying its
// source text so diagnostics can quote it.
func (p *parser) parseGeneric(name string, start int) (decl.TypeRef, error) {
	p.next() // consume "<"

	var args []decl.TypeRef
	for {
		arg, err := p.parseType()
		if err != nil {
			return decl.TypeRef{}, err
		}
		args = append(args, arg)

		if p.cur.Type == TOKEN_COMMA {
			p.next()
			continue
		}
		break
	}
	if p.cur.Type != TOKEN_GT {
		return decl.TypeRef{}, p.errorf(`expected ">", got %q`, p.cur.Literal)
	}
	end := p.cur.Pos.Offset + 1
	p.next()

	switch {
	case name == "Option" && len(args) == 1:
		if args[0].IsOptional() {
			return decl.TypeRef{}, p.errorf("optional types can't be recursive")
		}
		return decl.Optional(args[0]), nil
	case name == "Vec" && len(args) == 1:
		return decl.Array(args[0]), nil
	default:
		text := strings.TrimSpace(p.input[start:min(end, len(p.input))])
		return decl.Unsupported(text), nil
	}
}

func mustPrim(name string) decl.PrimitiveKind {
	kind, _ := decl.LookupPrimitive(name)
	return kind
}
