package decl

import "strings"

// PrimitiveKind classifies the closed set of host primitives the mapper
// knows a Luau spelling for.
type PrimitiveKind int

// Primitive kinds.
const (
	PrimNumber PrimitiveKind = iota
	PrimBool
	PrimString
)

// TypeKind tags a TypeRef.
type TypeKind int

// TypeRef kinds.
const (
	KindPrimitive TypeKind = iota
	// KindNamed references a record or enum by raw name. The final
	// spelling is only known once the resolver has fixed exported names.
	KindNamed
	KindOptional
	// KindArray is an ordered container of one element type.
	KindArray
	// KindSelf refers to the enclosing record.
	KindSelf
	// KindUnit is the absent value, used for void returns.
	KindUnit
	// KindUnsupported covers host constructs with no mapping, including
	// unmodeled generic parameters. Strictness decides whether it maps
	// to "any" or aborts the run.
	KindUnsupported
)

// TypeRef is a tagged union over the host type grammar.
type TypeRef struct {
	Kind TypeKind
	Prim PrimitiveKind // KindPrimitive
	Name string        // KindNamed (raw name), KindUnsupported (source text)
	Elem *TypeRef      // KindOptional, KindArray
}

// Primitive constructs a primitive TypeRef.
func Primitive(kind PrimitiveKind) TypeRef {
	return TypeRef{Kind: KindPrimitive, Prim: kind}
}

// Named constructs a reference to a record or enum by raw name.
func Named(name string) TypeRef {
	return TypeRef{Kind: KindNamed, Name: name}
}

// Optional wraps a TypeRef in a nullability marker.
func Optional(elem TypeRef) TypeRef {
	return TypeRef{Kind: KindOptional, Elem: &elem}
}

// Array wraps a TypeRef in an ordered container.
func Array(elem TypeRef) TypeRef {
	return TypeRef{Kind: KindArray, Elem: &elem}
}

// SelfType references the enclosing record.
func SelfType() TypeRef {
	return TypeRef{Kind: KindSelf}
}

// Unit is the absent value.
func Unit() TypeRef {
	return TypeRef{Kind: KindUnit}
}

// Unsupported records the host source text of a construct with no mapping.
func Unsupported(text string) TypeRef {
	return TypeRef{Kind: KindUnsupported, Name: text}
}

// IsUnit reports whether the ref is the unit type.
func (t TypeRef) IsUnit() bool {
	return t.Kind == KindUnit
}

// IsOptional reports whether the ref is wrapped in a nullability marker.
func (t TypeRef) IsOptional() bool {
	return t.Kind == KindOptional
}

// Equal reports structural equality. Used when checking that a get/set
// pair agrees on the field type.
func (t TypeRef) Equal(other TypeRef) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindPrimitive:
		return t.Prim == other.Prim
	case KindNamed, KindUnsupported:
		return t.Name == other.Name
	case KindOptional, KindArray:
		return t.Elem.Equal(*other.Elem)
	default:
		return true
	}
}

// String renders the host-side spelling, for diagnostics only.
func (t TypeRef) String() string {
	switch t.Kind {
	case KindPrimitive:
		switch t.Prim {
		case PrimBool:
			return "bool"
		case PrimString:
			return "String"
		default:
			return "number"
		}
	case KindNamed:
		return t.Name
	case KindOptional:
		return "Option<" + t.Elem.String() + ">"
	case KindArray:
		return "Vec<" + t.Elem.String() + ">"
	case KindSelf:
		return "Self"
	case KindUnit:
		return "()"
	case KindUnsupported:
		if t.Name == "" {
			return "<unsupported>"
		}
		return t.Name
	default:
		return "<invalid>"
	}
}

// Walk calls fn for the ref and every element type beneath it.
func (t TypeRef) Walk(fn func(TypeRef)) {
	fn(t)
	if t.Elem != nil {
		t.Elem.Walk(fn)
	}
}

// primitiveNames is the closed table of host identifiers mapping onto
// scripting primitives. Everything else resolves as a named type.
var primitiveNames = map[string]PrimitiveKind{
	"i8": PrimNumber, "i16": PrimNumber, "i32": PrimNumber, "i64": PrimNumber, "i128": PrimNumber, "isize": PrimNumber,
	"u8": PrimNumber, "u16": PrimNumber, "u32": PrimNumber, "u64": PrimNumber, "u128": PrimNumber, "usize": PrimNumber,
	"f32": PrimNumber, "f64": PrimNumber,
	"bool":    PrimBool,
	"String":  PrimString,
	"str":     PrimString,
	"CString": PrimString, "OsString": PrimString, "PathBuf": PrimString,
}

// LookupPrimitive returns the primitive kind for a host identifier.
func LookupPrimitive(ident string) (PrimitiveKind, bool) {
	kind, ok := primitiveNames[strings.TrimSpace(ident)]
	return kind, ok
}
