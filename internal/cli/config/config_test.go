package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/luadecl/internal/luatype"
)

// testFlags mirrors the persistent flag set the root command registers.
func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("input", "i", DefaultInputDir, "")
	fs.StringP("output", "o", DefaultOutputPath, "")
	fs.String("strictness", DefaultStrictness, "")
	fs.String("prefix", DefaultPrefix, "")
	fs.String("naming-hook", "", "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultInputDir, cfg.InputDir)
	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, DefaultStrictness, cfg.Strictness)
	assert.Equal(t, DefaultPrefix, cfg.Prefix)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "luadecl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
input_dir: manifests
output_path: types/game.d.luau
strictness: strict
prefix: ffi
rename:
  lua_add: sum
`), 0o644))

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)

	// Paths resolve relative to the config file, not the working directory.
	assert.Equal(t, filepath.Join(dir, "manifests"), cfg.InputDir)
	assert.Equal(t, filepath.Join(dir, "types", "game.d.luau"), cfg.OutputPath)
	assert.Equal(t, "ffi", cfg.Prefix)
	assert.Equal(t, luatype.Strict, cfg.StrictnessValue())
	assert.Equal(t, map[string]string{"lua_add": "sum"}, cfg.Rename)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

func TestLoad_ConfigFileFoundUpward(t *testing.T) {
	t.Cleanup(ResetConfig)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "luadecl.yml"), []byte("prefix: up\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "up", cfg.Prefix)
	assert.Equal(t, filepath.Join(root, "luadecl.yml"), GetConfigFileUsed())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "luadecl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("prefix: fromfile\n"), 0o644))
	t.Setenv("LUADECL_PREFIX", "fromenv")

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Prefix)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Chdir(t.TempDir())
	t.Setenv("LUADECL_PREFIX", "fromenv")

	fs := testFlags()
	require.NoError(t, fs.Set("prefix", "fromflag"))
	require.NoError(t, fs.Set("input", "specs"))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "fromflag", cfg.Prefix)
	// --input maps onto input_dir.
	assert.Equal(t, "specs", cfg.InputDir)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Chdir(t.TempDir())
	t.Setenv("LUADECL_STRICTNESS", "strict")

	cfg, err := Load("", testFlags())
	require.NoError(t, err)
	// The flag default must not clobber the env value.
	assert.Equal(t, "strict", cfg.Strictness)
}

func TestLoad_InvalidStrictness(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "luadecl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("strictness: pedantic\n"), 0o644))

	_, err := Load(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictness")
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
