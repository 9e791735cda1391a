package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/luadecl/internal/luatype"
	"github.com/leapstack-labs/luadecl/internal/naming"
	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

func newResolver() *Resolver {
	return New(naming.New("lua", nil, nil), luatype.New(luatype.Lenient), nil)
}

func site(unit string, line int) token.Site {
	return token.Site{Unit: unit, Pos: token.Position{Line: line}}
}

func fn(raw string, line int, params []decl.Param, ret decl.TypeRef) decl.Declaration {
	return decl.Declaration{Kind: decl.KindFunc, Func: &decl.Func{
		RawName: raw,
		Site:    site("test.rs", line),
		Sig:     decl.Signature{Params: params, Return: ret},
	}}
}

func mod(raw string, line int, decls []decl.Declaration, includes ...string) decl.Declaration {
	m := &decl.Module{RawName: raw, Site: site("test.rs", line), Decls: decls}
	for _, inc := range includes {
		m.Includes = append(m.Includes, decl.Include{Target: inc, Site: site("test.rs", line)})
	}
	return decl.Declaration{Kind: decl.KindModule, Module: m}
}

func TestResolve_NamesAndTypes(t *testing.T) {
	decls := []decl.Declaration{
		{Kind: decl.KindRecord, Record: &decl.Record{
			RawName: "LuaVector2",
			Site:    site("vec.rs", 5),
			Fields: []decl.Field{
				{Name: "x", Type: decl.Primitive(decl.PrimNumber), HasGetter: true, HasSetter: true, Site: site("vec.rs", 8)},
			},
			Methods: []decl.Method{
				{Receiver: decl.ReceiverRef, Func: decl.Func{
					RawName: "lua_dot",
					Site:    site("vec.rs", 12),
					Sig: decl.Signature{
						Params: []decl.Param{{Name: "other", Type: decl.SelfType()}},
						Return: decl.Primitive(decl.PrimNumber),
					},
				}},
			},
			Constructors: []decl.Func{{
				RawName: "new",
				Site:    site("vec.rs", 20),
				Sig: decl.Signature{
					Params: []decl.Param{
						{Name: "x", Type: decl.Primitive(decl.PrimNumber)},
					},
					Return: decl.SelfType(),
				},
			}},
		}},
		fn("lua_add", 30,
			[]decl.Param{{Name: "v", Type: decl.Named("LuaVector2")}},
			decl.Optional(decl.Named("LuaVector2"))),
	}

	tree, bag := newResolver().Resolve(decls)
	require.Equal(t, 0, bag.Len())
	require.NotNil(t, tree)
	require.Len(t, tree.Root, 2)

	rec := tree.Root[0].Record
	require.NotNil(t, rec)
	assert.Equal(t, "Vector2", rec.Name)
	require.Len(t, rec.Fields, 1)
	assert.Equal(t, "number", rec.Fields[0].Type)
	require.Len(t, rec.Methods, 1)
	assert.Equal(t, "dot", rec.Methods[0].Name)
	assert.Equal(t, "Vector2", rec.Methods[0].Params[0].Type) // Self maps to the exported record name
	require.Len(t, rec.Constructors, 1)
	assert.Equal(t, "Vector2", rec.Constructors[0].Return)

	add := tree.Root[1].Func
	require.NotNil(t, add)
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, "Vector2", add.Params[0].Type)
	assert.Equal(t, "Vector2 | nil", add.Return)
}

func TestResolve_IncludeNesting(t *testing.T) {
	decls := []decl.Declaration{
		mod("vectors", 1, []decl.Declaration{
			fn("lua_cross", 2, nil, decl.Primitive(decl.PrimNumber)),
		}),
		mod("lua_math", 10, []decl.Declaration{
			fn("lua_mul", 11, nil, decl.Primitive(decl.PrimNumber)),
		}, "vectors"),
	}

	tree, bag := newResolver().Resolve(decls)
	require.Equal(t, 0, bag.Len())
	require.NotNil(t, tree)

	// Included modules nest; only never-included modules surface at the top.
	require.Len(t, tree.Modules, 1)
	top := tree.Modules[0]
	assert.Equal(t, "math", top.Name)
	require.Len(t, top.Included, 1)
	assert.Equal(t, "vectors", top.Included[0].Name)
	require.Len(t, top.Included[0].Items, 1)
	assert.Equal(t, "cross", top.Included[0].Items[0].Func.Name)
}

func TestResolve_SharedIncludeRendersUnderEachIncluder(t *testing.T) {
	decls := []decl.Declaration{
		mod("shared", 1, nil),
		mod("a", 5, nil, "shared"),
		mod("b", 9, nil, "shared"),
	}

	tree, bag := newResolver().Resolve(decls)
	require.Equal(t, 0, bag.Len())
	require.Len(t, tree.Modules, 2)
	require.Len(t, tree.Modules[0].Included, 1)
	require.Len(t, tree.Modules[1].Included, 1)
	assert.Same(t, tree.Modules[0].Included[0], tree.Modules[1].Included[0])
}

func TestResolve_InclusionCycle(t *testing.T) {
	decls := []decl.Declaration{
		mod("a", 1, nil, "b"),
		mod("b", 5, nil, "a"),
	}

	tree, bag := newResolver().Resolve(decls)
	assert.Nil(t, tree)
	require.True(t, bag.HasFatal())

	var cycle *diag.Diagnostic
	for _, d := range bag.All() {
		if d.Kind == diag.InclusionCycle {
			d := d
			cycle = &d
		}
	}
	require.NotNil(t, cycle, "expected an InclusionCycle diagnostic")
	assert.Equal(t, diag.SeverityError, cycle.Severity)
	assert.Contains(t, cycle.Message, " -> ")
}

func TestResolve_UnknownIncludeTarget(t *testing.T) {
	decls := []decl.Declaration{
		mod("main", 1, nil, "ghost"),
	}

	tree, bag := newResolver().Resolve(decls)
	require.NotNil(t, tree, "a dangling include is not fatal")
	require.Len(t, tree.Modules, 1)
	assert.Empty(t, tree.Modules[0].Included)

	require.Equal(t, 1, bag.Len())
	d := bag.All()[0]
	assert.Equal(t, diag.MalformedMarker, d.Kind)
	assert.Equal(t, diag.SeverityWarning, d.Severity)
	assert.Contains(t, d.Message, "ghost")
}

func TestResolve_DuplicateScopeName(t *testing.T) {
	decls := []decl.Declaration{
		fn("lua_add", 3, nil, decl.Unit()),
		fn("add", 8, nil, decl.Unit()),
	}

	tree, bag := newResolver().Resolve(decls)
	assert.Nil(t, tree)
	require.True(t, bag.HasFatal())

	var found bool
	for _, d := range bag.All() {
		if d.Kind == diag.DuplicateScopeName && d.Severity == diag.SeverityError {
			found = true
			require.Len(t, d.Related, 1)
			assert.Equal(t, 3, d.Related[0].Pos.Line)
		}
	}
	assert.True(t, found, "expected a fatal DuplicateScopeName")
}

func TestResolve_GlobalTypeNamespace(t *testing.T) {
	decls := []decl.Declaration{
		{Kind: decl.KindRecord, Record: &decl.Record{RawName: "LuaVector3", Site: site("physics.rs", 7)}},
		mod("effects", 1, []decl.Declaration{
			{Kind: decl.KindEnum, Enum: &decl.Enum{RawName: "Vector3", Site: site("math.rs", 14)}},
		}),
	}

	tree, bag := newResolver().Resolve(decls)
	assert.Nil(t, tree)
	require.True(t, bag.HasFatal())

	var found bool
	for _, d := range bag.All() {
		if d.Kind == diag.DuplicateGlobalTypeName {
			found = true
			assert.Equal(t, "math.rs", d.Site.Unit)
			require.Len(t, d.Related, 1)
			assert.Equal(t, "physics.rs", d.Related[0].Unit)
		}
	}
	assert.True(t, found, "record and enum names share one namespace")
}

func TestResolve_DuplicateModuleName(t *testing.T) {
	decls := []decl.Declaration{
		mod("main", 1, nil),
		mod("main", 9, nil),
	}

	tree, bag := newResolver().Resolve(decls)
	assert.Nil(t, tree)
	require.True(t, bag.HasFatal())
	assert.Equal(t, diag.DuplicateScopeName, bag.All()[0].Kind)
}

func TestResolve_UnknownNamedTypeFallsBack(t *testing.T) {
	decls := []decl.Declaration{
		fn("use_entity", 1,
			[]decl.Param{{Name: "e", Type: decl.Named("LuaEntity")}},
			decl.Unit()),
	}

	tree, bag := newResolver().Resolve(decls)
	require.Equal(t, 0, bag.Len())
	// Undeclared names still get the prefix treatment.
	assert.Equal(t, "Entity", tree.Root[0].Func.Params[0].Type)
}
