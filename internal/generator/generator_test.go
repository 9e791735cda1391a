package generator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/luadecl/internal/luatype"
	"github.com/leapstack-labs/luadecl/internal/testutil"
	"github.com/leapstack-labs/luadecl/pkg/diag"
)

const vectorManifest = `
unit: vec.rs
decls:
  - kind: record
    name: LuaVector2
    line: 4
    members:
      - tag: get
        signature: "x(ctx, &self) -> f32"
        line: 6
      - tag: method
        signature: "lua_dot(ctx, &self, other: Self) -> f32"
        line: 8
      - tag: func
        signature: "new(ctx, x: f32) -> Self"
        line: 10
  - kind: func
    signature: "lua_add(ctx, a: f32, b: f32) -> f32"
    line: 20
`

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRun_EndToEnd(t *testing.T) {
	in := t.TempDir()
	writeManifest(t, in, "vec.yaml", vectorManifest)
	out := filepath.Join(t.TempDir(), "bindings.d.luau")

	eng := New(Config{InputDir: in, OutputPath: out, Prefix: "lua", Logger: testutil.Logger(t)})
	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Diagnostics.Len())
	require.Equal(t, []string{out}, result.Files)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	want := `export type Vector2 = {
    x: number,
    dot: (self: Vector2, other: Vector2) -> number,
}

declare Vector2: {
    new: (x: number) -> Vector2,
}
declare function add(a: number, b: number): number
`
	assert.Equal(t, want, string(data))
}

func TestRun_FatalWritesNothing(t *testing.T) {
	in := t.TempDir()
	writeManifest(t, in, "a.yaml", `
unit: a.rs
decls:
  - kind: record
    name: LuaColor
    line: 1
`)
	writeManifest(t, in, "b.yaml", `
unit: b.rs
decls:
  - kind: enum
    name: Color
    line: 1
    variants: [Red]
`)
	out := filepath.Join(t.TempDir(), "bindings.d.luau")

	eng := New(Config{InputDir: in, OutputPath: out, Prefix: "lua"})
	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Diagnostics.HasFatal())
	assert.Nil(t, result.Files)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "fatal runs must not write output")
}

func TestRun_CollectsAllDiagnostics(t *testing.T) {
	in := t.TempDir()
	writeManifest(t, in, "a.yaml", `
unit: a.rs
decls:
  - kind: module
    name: x
    line: 1
    includes: [y]
  - kind: module
    name: y
    line: 5
    includes: [x, ghost]
`)
	out := filepath.Join(t.TempDir(), "bindings.d.luau")

	eng := New(Config{InputDir: in, OutputPath: out, Prefix: "lua"})
	result, err := eng.Run(context.Background())
	require.NoError(t, err)

	// One cycle and one dangling include, reported in the same batch.
	kinds := map[diag.Kind]bool{}
	for _, d := range result.Diagnostics.All() {
		kinds[d.Kind] = true
	}
	assert.True(t, kinds[diag.InclusionCycle])
	assert.True(t, kinds[diag.MalformedMarker])
}

func TestRun_StrictnessGovernsUnsupported(t *testing.T) {
	manifest := `
unit: a.rs
decls:
  - kind: func
    signature: "lua_lookup(ctx, m: HashMap<String, f32>) -> f32"
    line: 1
`
	run := func(s luatype.Strictness) *Result {
		in := t.TempDir()
		writeManifest(t, in, "a.yaml", manifest)
		out := filepath.Join(t.TempDir(), "bindings.d.luau")
		result, err := New(Config{InputDir: in, OutputPath: out, Prefix: "lua", Strictness: s}).Run(context.Background())
		require.NoError(t, err)
		return result
	}

	lenient := run(luatype.Lenient)
	assert.False(t, lenient.Diagnostics.HasFatal())
	require.Len(t, lenient.Files, 1)
	data, err := os.ReadFile(lenient.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "m: any")

	strict := run(luatype.Strict)
	assert.True(t, strict.Diagnostics.HasFatal())
	assert.Nil(t, strict.Files)
}

func TestRun_BadManifestIsDiagnosed(t *testing.T) {
	in := t.TempDir()
	writeManifest(t, in, "bad.yaml", "decls: {not: a list}")
	out := filepath.Join(t.TempDir(), "bindings.d.luau")

	result, err := New(Config{InputDir: in, OutputPath: out}).Run(context.Background())
	require.NoError(t, err, "a broken manifest is a diagnostic, not a crash")
	require.True(t, result.Diagnostics.HasFatal())
	assert.Equal(t, diag.IOFailure, result.Diagnostics.All()[0].Kind)
}

func TestCheck_WritesNothing(t *testing.T) {
	in := t.TempDir()
	writeManifest(t, in, "vec.yaml", vectorManifest)
	out := filepath.Join(t.TempDir(), "bindings.d.luau")

	result, err := New(Config{InputDir: in, OutputPath: out, Prefix: "lua"}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Diagnostics.Len())
	assert.Nil(t, result.Files)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRename_OverridesPrefix(t *testing.T) {
	in := t.TempDir()
	writeManifest(t, in, "a.yaml", `
unit: a.rs
decls:
  - kind: func
    signature: "lua_add(ctx) -> f32"
    line: 1
`)
	out := filepath.Join(t.TempDir(), "bindings.d.luau")

	cfg := Config{
		InputDir:   in,
		OutputPath: out,
		Prefix:     "lua",
		Renames:    map[string]string{"lua_add": "sum"},
	}
	result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "declare function sum(): number\n", string(data))
}
