package luatype

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

var testSite = token.Site{Unit: "test.rs", Pos: token.Position{Line: 1}}

func TestMap_ValuePosition(t *testing.T) {
	env := Env{
		Types: map[string]string{"LuaVector2": "Vector2"},
		Self:  "Vector2",
	}
	m := New(Lenient)

	tests := []struct {
		ty   decl.TypeRef
		want string
	}{
		{decl.Primitive(decl.PrimNumber), "number"},
		{decl.Primitive(decl.PrimBool), "boolean"},
		{decl.Primitive(decl.PrimString), "string"},
		{decl.Named("LuaVector2"), "Vector2"},
		{decl.SelfType(), "Vector2"},
		{decl.Optional(decl.Primitive(decl.PrimNumber)), "number?"},
		{decl.Optional(decl.Named("LuaVector2")), "Vector2?"},
		{decl.Array(decl.Primitive(decl.PrimString)), "{string}"},
		{decl.Array(decl.Optional(decl.Named("LuaVector2"))), "{Vector2?}"},
	}

	for _, tt := range tests {
		var bag diag.Bag
		got := m.Map(tt.ty, env, testSite, &bag)
		if got != tt.want {
			t.Errorf("Map(%v) = %q, want %q", tt.ty, got, tt.want)
		}
		if bag.Len() != 0 {
			t.Errorf("Map(%v) produced diagnostics: %v", tt.ty, bag.All())
		}
	}
}

func TestMapReturn(t *testing.T) {
	env := Env{Types: map[string]string{"LuaVector2": "Vector2"}}
	m := New(Lenient)

	tests := []struct {
		ty   decl.TypeRef
		want string
	}{
		{decl.Unit(), ""},
		{decl.Primitive(decl.PrimNumber), "number"},
		{decl.Optional(decl.Primitive(decl.PrimNumber)), "number | nil"},
		{decl.Optional(decl.Named("LuaVector2")), "Vector2 | nil"},
		{decl.Array(decl.Primitive(decl.PrimNumber)), "{number}"},
	}

	for _, tt := range tests {
		var bag diag.Bag
		got := m.MapReturn(tt.ty, env, testSite, &bag)
		if got != tt.want {
			t.Errorf("MapReturn(%v) = %q, want %q", tt.ty, got, tt.want)
		}
	}
}

func TestMap_NamedFallback(t *testing.T) {
	m := New(Lenient)

	// Without a fallback the raw name passes through.
	var bag diag.Bag
	got := m.Map(decl.Named("Entity"), Env{}, testSite, &bag)
	if got != "Entity" {
		t.Errorf("no fallback: got %q", got)
	}

	// A fallback gets the final say over unknown names.
	env := Env{Fallback: func(raw string) string { return strings.TrimPrefix(raw, "Lua") }}
	got = m.Map(decl.Named("LuaEntity"), env, testSite, &bag)
	if got != "Entity" {
		t.Errorf("fallback: got %q", got)
	}
}

func TestMap_SelfOutsideRecord(t *testing.T) {
	m := New(Lenient)
	var bag diag.Bag

	got := m.Map(decl.SelfType(), Env{}, testSite, &bag)
	if got != "any" {
		t.Errorf("got %q, want any", got)
	}
	if bag.Len() != 1 || bag.All()[0].Kind != diag.UnsupportedType {
		t.Fatalf("expected one UnsupportedType diagnostic, got %v", bag.All())
	}
}

func TestMap_StrictnessSeverity(t *testing.T) {
	unsupported := decl.TypeRef{Kind: decl.KindUnsupported, Name: "HashMap<String, f32>"}

	var lenientBag diag.Bag
	if got := New(Lenient).Map(unsupported, Env{}, testSite, &lenientBag); got != "any" {
		t.Errorf("lenient: got %q, want any", got)
	}
	if lenientBag.HasFatal() {
		t.Error("lenient mapping must not be fatal")
	}
	if lenientBag.All()[0].Severity != diag.SeverityWarning {
		t.Error("lenient mapping should warn")
	}

	var strictBag diag.Bag
	New(Strict).Map(unsupported, Env{}, testSite, &strictBag)
	if !strictBag.HasFatal() {
		t.Error("strict mapping should be fatal")
	}
}

func TestParseStrictness(t *testing.T) {
	if s, ok := ParseStrictness("strict"); !ok || s != Strict {
		t.Error("strict failed to parse")
	}
	if s, ok := ParseStrictness("Lenient"); !ok || s != Lenient {
		t.Error("lenient failed to parse")
	}
	if s, ok := ParseStrictness(""); !ok || s != Lenient {
		t.Error("empty should default to lenient")
	}
	if _, ok := ParseStrictness("pedantic"); ok {
		t.Error("unknown level should not parse")
	}
}
