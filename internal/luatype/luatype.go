// Package luatype maps host type references onto Luau type spellings.
//
// The mapping is a closed table over the TypeRef union. Named references
// resolve against the run-global type table the resolver computed, so
// mapping runs as a second pass once every exported name is final.
package luatype

import (
	"strings"

	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

// Strictness governs how unsupported host constructs degrade.
type Strictness int

// Strictness levels.
const (
	// Lenient maps unsupported constructs to "any" with a warning.
	Lenient Strictness = iota
	// Strict turns any unsupported construct into a fatal diagnostic.
	Strict
)

// String returns the configuration spelling of the strictness.
func (s Strictness) String() string {
	if s == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseStrictness converts a configuration string to a Strictness value.
func ParseStrictness(s string) (Strictness, bool) {
	switch strings.ToLower(s) {
	case "strict":
		return Strict, true
	case "lenient", "":
		return Lenient, true
	default:
		return Lenient, false
	}
}

// Env carries the name context for one mapping call.
type Env struct {
	// Types maps raw record/enum names to their final exported names,
	// across the whole run (the type namespace is flat).
	Types map[string]string
	// Self is the enclosing record's exported name, "" outside records.
	Self string
	// Fallback renders a named reference that no declaration in the run
	// introduced, e.g. a type provided by another binding crate.
	Fallback func(raw string) string
}

// Mapper converts TypeRefs to Luau spellings.
type Mapper struct {
	strictness Strictness
}

// New creates a Mapper.
func New(strictness Strictness) *Mapper {
	return &Mapper{strictness: strictness}
}

// Strictness returns the configured strictness.
func (m *Mapper) Strictness() Strictness {
	return m.strictness
}

// Map renders a TypeRef in value position (parameters and fields), where
// optionality is spelled with a "?" suffix.
func (m *Mapper) Map(t decl.TypeRef, env Env, site token.Site, bag *diag.Bag) string {
	if t.Kind == decl.KindOptional {
		return m.Map(*t.Elem, env, site, bag) + "?"
	}
	return m.base(t, env, site, bag)
}

// MapReturn renders a TypeRef in return position. Unit renders empty (no
// annotation) and optionality is spelled "T | nil".
func (m *Mapper) MapReturn(t decl.TypeRef, env Env, site token.Site, bag *diag.Bag) string {
	switch t.Kind {
	case decl.KindUnit:
		return ""
	case decl.KindOptional:
		return m.base(*t.Elem, env, site, bag) + " | nil"
	default:
		return m.base(t, env, site, bag)
	}
}

// base renders every non-optional shape.
func (m *Mapper) base(t decl.TypeRef, env Env, site token.Site, bag *diag.Bag) string {
	switch t.Kind {
	case decl.KindPrimitive:
		switch t.Prim {
		case decl.PrimBool:
			return "boolean"
		case decl.PrimString:
			return "string"
		default:
			return "number"
		}

	case decl.KindArray:
		return "{" + m.Map(*t.Elem, env, site, bag) + "}"

	case decl.KindSelf:
		if env.Self == "" {
			m.unsupported("Self outside a record", site, bag)
			return "any"
		}
		return env.Self

	case decl.KindNamed:
		if name, ok := env.Types[t.Name]; ok {
			return name
		}
		if env.Fallback != nil {
			return env.Fallback(t.Name)
		}
		return t.Name

	case decl.KindOptional:
		// Nested optionals are rejected by the parser; a bare optional
		// lands here only through Map/MapReturn which unwrap it first.
		return m.Map(t, env, site, bag)

	case decl.KindUnit:
		return "nil"

	default:
		m.unsupported(t.String(), site, bag)
		return "any"
	}
}

// unsupported reports a construct outside the mapping table. Lenient runs
// degrade to "any"; strict runs make the diagnostic fatal.
func (m *Mapper) unsupported(text string, site token.Site, bag *diag.Bag) {
	severity := diag.SeverityWarning
	if m.strictness == Strict {
		severity = diag.SeverityError
	}
	bag.Addf(diag.UnsupportedType, severity, site,
		"no Luau mapping for host type %q", text)
}
