// Package decl defines the typed declaration model built once per
// generation run from the annotation collector's output. The model is
// immutable after building; resolution and emission only read it.
package decl

import "github.com/leapstack-labs/luadecl/pkg/token"

// Kind tags a Declaration.
type Kind int

// Declaration kinds.
const (
	KindFunc Kind = iota
	KindRecord
	KindEnum
	KindModule
)

// String returns the manifest spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindRecord:
		return "record"
	case KindEnum:
		return "enum"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// Param is one user-facing function parameter. Context and receiver
// parameters are stripped by the builder; they carry no meaning in the
// scripting runtime's view of the function.
type Param struct {
	Name string
	Type TypeRef
}

// Signature is an ordered parameter list plus an optional return type.
// Fallible signals the function may raise a runtime error instead of
// returning; the Luau declaration grammar has no spelling for it, so it
// stays model-only.
type Signature struct {
	Params   []Param
	Return   TypeRef // Unit when the function returns nothing
	Fallible bool
}

// ReceiverKind distinguishes record member functions.
type ReceiverKind int

// Receiver kinds.
const (
	// ReceiverNone marks a constructor-style function: it has no
	// receiver and returns the record type from the owning scope.
	ReceiverNone ReceiverKind = iota
	// ReceiverRef marks an immutable method.
	ReceiverRef
	// ReceiverMut marks a mutating method.
	ReceiverMut
)

// Func is a free function or a record member function.
type Func struct {
	RawName string
	Rename  string // explicit export-name override, highest precedence
	Doc     string
	Site    token.Site
	Sig     Signature
}

// Field is one record field merged from a get/set pair.
type Field struct {
	Name      string
	Type      TypeRef
	HasGetter bool
	HasSetter bool
	Site      token.Site
}

// Method is a record instance method.
type Method struct {
	Receiver ReceiverKind
	Func     Func
}

// Record is a struct-like type exposed to the runtime as userdata with
// accessor fields, methods and constructor functions.
type Record struct {
	RawName      string
	Rename       string
	Doc          string
	Site         token.Site
	Fields       []Field
	Methods      []Method
	Constructors []Func
}

// Variant is one enum variant with its integer discriminant.
type Variant struct {
	Name  string
	Value int
}

// Enum is an integer enumeration exposed as a name-to-discriminant table.
type Enum struct {
	RawName  string
	Rename   string
	Doc      string
	Site     token.Site
	Variants []Variant // declaration order
}

// Module is a named container of declarations and inclusion references.
// Modules never nest textually; composition happens only through Includes.
type Module struct {
	RawName string
	Rename  string
	Doc     string
	Site    token.Site
	// Main marks the annotated entrypoint module. It is carried for the
	// runtime bridge that registers modules at execution time; declaration
	// emission does not read it.
	Main     bool
	Decls    []Declaration // source order
	Includes []Include
}

// Include references another top-level module by identity.
type Include struct {
	Target string
	Site   token.Site
}

// Declaration is the tagged variant over the four declaration kinds.
// Exactly one of the pointers matching Kind is non-nil.
type Declaration struct {
	Kind   Kind
	Func   *Func
	Record *Record
	Enum   *Enum
	Module *Module
}

// RawName returns the raw (untransformed) name of the declaration.
func (d Declaration) RawName() string {
	switch d.Kind {
	case KindFunc:
		return d.Func.RawName
	case KindRecord:
		return d.Record.RawName
	case KindEnum:
		return d.Enum.RawName
	case KindModule:
		return d.Module.RawName
	default:
		return ""
	}
}

// Site returns the declaration site.
func (d Declaration) Site() token.Site {
	switch d.Kind {
	case KindFunc:
		return d.Func.Site
	case KindRecord:
		return d.Record.Site
	case KindEnum:
		return d.Enum.Site
	case KindModule:
		return d.Module.Site
	default:
		return token.Site{}
	}
}

// Rename returns the explicit export-name override, or "" when none.
func (d Declaration) Rename() string {
	switch d.Kind {
	case KindFunc:
		return d.Func.Rename
	case KindRecord:
		return d.Record.Rename
	case KindEnum:
		return d.Enum.Rename
	case KindModule:
		return d.Module.Rename
	default:
		return ""
	}
}

// Doc returns the declaration's doc text.
func (d Declaration) Doc() string {
	switch d.Kind {
	case KindFunc:
		return d.Func.Doc
	case KindRecord:
		return d.Record.Doc
	case KindEnum:
		return d.Enum.Doc
	case KindModule:
		return d.Module.Doc
	default:
		return ""
	}
}

// IsType reports whether the declaration introduces a type identifier.
// Record and enum names share one flat namespace across the entire run.
func (d Declaration) IsType() bool {
	return d.Kind == KindRecord || d.Kind == KindEnum
}
