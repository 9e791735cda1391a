// Package naming computes final exported identifiers from raw host names.
//
// Precedence: explicit rename (per-declaration override, then the config
// rename map, then the naming hook) wins; otherwise the configured prefix
// is stripped when the remainder is non-empty and free in the target
// scope; otherwise the raw name stands.
package naming

import (
	"strings"

	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

// Hook resolves programmatic renames. It returns the exported name and
// true, or false to fall through to prefix stripping.
type Hook func(kind decl.Kind, rawName string) (string, bool)

// Scope tracks the names already placed in one output scope so that
// prefix stripping can detect collisions before committing a name.
type Scope struct {
	names map[string]token.Site
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{names: make(map[string]token.Site)}
}

// Lookup returns the site that already holds a name in this scope.
func (s *Scope) Lookup(name string) (token.Site, bool) {
	site, ok := s.names[name]
	return site, ok
}

// Place records a name as occupied. Returns the previous holder when the
// name was already taken; the caller reports the duplicate.
func (s *Scope) Place(name string, site token.Site) (token.Site, bool) {
	if prev, taken := s.names[name]; taken {
		return prev, true
	}
	s.names[name] = site
	return token.Site{}, false
}

// Transformer applies rename overrides and prefix stripping.
type Transformer struct {
	prefix  string
	renames map[string]string
	hook    Hook
}

// New creates a Transformer. The rename map and hook may be nil.
func New(prefix string, renames map[string]string, hook Hook) *Transformer {
	return &Transformer{prefix: prefix, renames: renames, hook: hook}
}

// Export computes the exported name for a declaration about to be placed
// in scope. When prefix stripping is blocked by a collision the raw name
// is kept and a warning diagnostic is returned.
func (t *Transformer) Export(kind decl.Kind, rawName, override string, site token.Site, scope *Scope) (string, *diag.Diagnostic) {
	if override != "" {
		return override, nil
	}
	if t.renames != nil {
		if name, ok := t.renames[rawName]; ok && name != "" {
			return name, nil
		}
	}
	if t.hook != nil {
		if name, ok := t.hook(kind, rawName); ok && name != "" {
			return name, nil
		}
	}

	stripped, ok := t.strip(rawName)
	if !ok {
		return rawName, nil
	}

	if prev, taken := scope.Lookup(stripped); taken {
		d := &diag.Diagnostic{
			Kind:     diag.DuplicateScopeName,
			Severity: diag.SeverityWarning,
			Site:     site,
			Message: "stripping prefix from \"" + rawName + "\" would collide with existing \"" +
				stripped + "\"; keeping the raw name",
			Related: []token.Site{prev},
		}
		return rawName, d
	}
	return stripped, nil
}

// strip removes the configured prefix when the remainder is non-empty.
// Matching is case-insensitive so one configured prefix covers both
// snake_case and PascalCase raw names (lua_add -> add, LuaVector -> Vector);
// snake-case names also lose the separator.
func (t *Transformer) strip(rawName string) (string, bool) {
	if t.prefix == "" || len(rawName) < len(t.prefix) {
		return "", false
	}
	if !strings.EqualFold(rawName[:len(t.prefix)], t.prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(rawName[len(t.prefix):], "_")
	if rest == "" {
		return "", false
	}
	return rest, true
}
