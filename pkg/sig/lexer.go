// Package sig parses raw host signature text from annotation manifests
// into the typed signature model.
package sig

import "github.com/leapstack-labs/luadecl/pkg/token"

// TokenType identifies a lexical token in signature text.
type TokenType int

// Token types.
const (
	TOKEN_EOF TokenType = iota
	TOKEN_IDENT
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_COMMA
	TOKEN_COLON
	TOKEN_ARROW
	TOKEN_AMP
	TOKEN_LT
	TOKEN_GT
	TOKEN_BANG
	TOKEN_ILLEGAL
)

// Token is one lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     token.Position
}

// Lexer tokenizes signature text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: 1, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.currentPos()

	var tok Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = TOKEN_EOF
	case '(':
		tok = l.newToken(TOKEN_LPAREN, "(")
	case ')':
		tok = l.newToken(TOKEN_RPAREN, ")")
	case ',':
		tok = l.newToken(TOKEN_COMMA, ",")
	case ':':
		tok = l.newToken(TOKEN_COLON, ":")
	case '&':
		tok = l.newToken(TOKEN_AMP, "&")
	case '<':
		tok = l.newToken(TOKEN_LT, "<")
	case '>':
		tok = l.newToken(TOKEN_GT, ">")
	case '!':
		tok = l.newToken(TOKEN_BANG, "!")
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: TOKEN_ARROW, Literal: "->", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_ILLEGAL, "-")
		}
	default:
		if isIdentStart(l.ch) {
			tok.Type = TOKEN_IDENT
			tok.Literal = l.readIdent()
			return tok
		}
		tok = l.newToken(TOKEN_ILLEGAL, string(l.ch))
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(t TokenType, literal string) Token {
	return Token{Type: t, Literal: literal, Pos: l.currentPos()}
}

// readIdent consumes an identifier and returns it.
func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
