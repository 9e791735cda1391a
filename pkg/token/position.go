// Package token provides source positions for annotated declarations
// and the diagnostics that reference them.
package token

import "fmt"

// Position represents a location in an annotated source unit.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String renders the position as "line:column". Column is omitted when
// the collector only reported a line.
func (p Position) String() string {
	if p.Column > 0 {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%d", p.Line)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// IsValid returns true if both start and end positions are valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

// Site is a position qualified by the source unit it belongs to.
// Declarations from every scanned unit are merged before resolution,
// so cross-unit diagnostics need both halves to point anywhere useful.
type Site struct {
	Unit string
	Pos  Position
}

// String renders the site as "unit:line:column".
func (s Site) String() string {
	if s.Unit == "" {
		return s.Pos.String()
	}
	return s.Unit + ":" + s.Pos.String()
}
