// Package resolver runs the global pass over the merged declaration
// model: inclusion-graph validation, name transformation with scope and
// run-global collision checks, and the second type-mapping pass that
// fixes named references to their final exported spellings.
//
// Every check runs to completion and collects all violations before the
// run aborts; the resolver never stops at the first error.
package resolver

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/luadecl/internal/dag"
	"github.com/leapstack-labs/luadecl/internal/luatype"
	"github.com/leapstack-labs/luadecl/internal/naming"
	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

// Param is a fully mapped function parameter.
type Param struct {
	Name string
	Type string // Luau spelling, "?"-suffixed when optional
}

// Func is a fully resolved function: exported name and Luau type text.
type Func struct {
	Name   string
	Doc    string
	Params []Param
	Return string // "" when the function returns nothing
}

// Field is a resolved record field.
type Field struct {
	Name string
	Type string
}

// Record is a resolved record: the exported type shape plus the
// constructor table entries emitted at the owning scope.
type Record struct {
	Name         string
	Doc          string
	Fields       []Field
	Methods      []Func
	Constructors []Func
}

// Enum is a resolved enumeration.
type Enum struct {
	Name     string
	Doc      string
	Variants []decl.Variant
}

// Item is one resolved declaration in scope source order.
type Item struct {
	Kind   decl.Kind
	Func   *Func
	Record *Record
	Enum   *Enum
}

// Module is a resolved module node. Included modules hang beneath it as
// distinct sub-trees; inclusion never flattens members into the
// including scope.
type Module struct {
	Name string
	Doc  string
	// Main passes through from the model for the runtime bridge; the
	// emitter does not read it.
	Main     bool
	Items    []Item
	Included []*Module // inclusion order
}

// Tree is the resolved output model. Emission reads it without mutating.
type Tree struct {
	// Root holds top-level declarations that belong to no module.
	Root []Item
	// Modules holds top-level modules not included by any other module,
	// in source order.
	Modules []*Module
}

// Resolver owns the run-global type symbol table for the duration of its
// pass. The table is local state here, never a process-wide singleton.
type Resolver struct {
	transformer *naming.Transformer
	mapper      *luatype.Mapper
	logger      *slog.Logger
}

// New creates a Resolver.
func New(transformer *naming.Transformer, mapper *luatype.Mapper, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{transformer: transformer, mapper: mapper, logger: logger}
}

// typeEntry is one row of the run-global type table.
type typeEntry struct {
	exported string
	site     token.Site
}

// Resolve validates the merged declaration list and produces the
// resolved tree. On fatal diagnostics the tree is nil; the bag always
// carries every violation found.
func (r *Resolver) Resolve(decls []decl.Declaration) (*Tree, *diag.Bag) {
	bag := &diag.Bag{}

	modules := map[string]*decl.Module{}
	for _, d := range decls {
		if d.Kind == decl.KindModule {
			if prev, dup := modules[d.Module.RawName]; dup {
				bag.Add(diag.Diagnostic{
					Kind:     diag.DuplicateScopeName,
					Severity: diag.SeverityError,
					Site:     d.Module.Site,
					Message:  "module " + d.Module.RawName + " declared more than once",
					Related:  []token.Site{prev.Site},
				})
				continue
			}
			modules[d.Module.RawName] = d.Module
		}
	}

	included := r.checkInclusions(decls, modules, bag)

	// Naming pass: exported names per scope, plus the run-global type
	// table. Runs even when the graph is cyclic so that every naming
	// violation is reported in the same batch.
	types := map[string]typeEntry{}
	names := map[*decl.Module]map[string]string{} // per-module exported member names
	rootNames := r.nameScope(decls, types, bag)

	for _, d := range decls {
		if d.Kind == decl.KindModule {
			names[d.Module] = r.nameScope(d.Module.Decls, types, bag)
		}
	}

	if bag.HasFatal() {
		return nil, bag
	}

	// Second pass: map every type reference now that names are final.
	env := luatype.Env{
		Types:    map[string]string{},
		Fallback: r.fallbackName,
	}
	for raw, entry := range types {
		env.Types[raw] = entry.exported
	}

	tree := &Tree{}
	resolved := map[*decl.Module]*Module{}

	var build func(m *decl.Module) *Module
	build = func(m *decl.Module) *Module {
		if node, done := resolved[m]; done {
			return node
		}
		node := &Module{
			Name: rootNames[m.RawName],
			Doc:  m.Doc,
			Main: m.Main,
		}
		resolved[m] = node
		node.Items = r.buildItems(m.Decls, names[m], env, bag)
		for _, inc := range m.Includes {
			target, known := modules[inc.Target]
			if !known {
				continue // already reported by checkInclusions
			}
			node.Included = append(node.Included, build(target))
		}
		return node
	}

	for _, d := range decls {
		if d.Kind == decl.KindModule {
			if !included[d.Module.RawName] {
				tree.Modules = append(tree.Modules, build(d.Module))
			}
			continue
		}
		tree.Root = append(tree.Root, r.buildItems([]decl.Declaration{d}, rootNames, env, bag)...)
	}

	if bag.HasFatal() {
		return nil, bag
	}

	r.logger.Debug("resolved declaration tree",
		"root_items", len(tree.Root),
		"top_modules", len(tree.Modules),
		"types", len(types))
	return tree, bag
}

// checkInclusions builds the inclusion graph, reports unknown targets and
// every cycle, and returns the set of modules included by another module.
func (r *Resolver) checkInclusions(decls []decl.Declaration, modules map[string]*decl.Module, bag *diag.Bag) map[string]bool {
	graph := dag.NewGraph()
	for name, m := range modules {
		graph.AddNode(name, m)
	}

	included := map[string]bool{}
	for _, d := range decls {
		if d.Kind != decl.KindModule {
			continue
		}
		m := d.Module
		for _, inc := range m.Includes {
			if _, known := modules[inc.Target]; !known {
				bag.Addf(diag.MalformedMarker, diag.SeverityWarning, inc.Site,
					"module %s includes unknown module %q", m.RawName, inc.Target)
				continue
			}
			included[inc.Target] = true
			_ = graph.AddEdge(m.RawName, inc.Target)
		}
	}

	for _, cycle := range graph.Cycles() {
		site := token.Site{}
		if m, ok := modules[cycle[0]]; ok {
			site = m.Site
		}
		bag.Addf(diag.InclusionCycle, diag.SeverityError, site,
			"module inclusion cycle: %s", strings.Join(cycle, " -> "))
	}

	return included
}

// nameScope transforms every name in one scope, records scope and global
// type collisions, and returns raw name -> exported name for the scope.
func (r *Resolver) nameScope(decls []decl.Declaration, types map[string]typeEntry, bag *diag.Bag) map[string]string {
	scope := naming.NewScope()
	out := map[string]string{}

	for _, d := range decls {
		name, warn := r.transformer.Export(d.Kind, d.RawName(), d.Rename(), d.Site(), scope)
		if warn != nil {
			bag.Add(*warn)
		}
		out[d.RawName()] = name

		if prev, taken := scope.Place(name, d.Site()); taken {
			bag.Add(diag.Diagnostic{
				Kind:     diag.DuplicateScopeName,
				Severity: diag.SeverityError,
				Site:     d.Site(),
				Message:  "name " + name + " already declared in this scope",
				Related:  []token.Site{prev},
			})
			continue
		}

		if d.IsType() {
			if prev, dup := types[d.RawName()]; dup && prev.site != d.Site() {
				// Same raw name in two scopes still collides globally.
				r.reportGlobalDup(name, d.Site(), prev.site, bag)
				continue
			}
			for raw, entry := range types {
				if entry.exported == name && raw != d.RawName() {
					r.reportGlobalDup(name, d.Site(), entry.site, bag)
				}
			}
			types[d.RawName()] = typeEntry{exported: name, site: d.Site()}
		}
	}

	return out
}

func (r *Resolver) reportGlobalDup(name string, site, prev token.Site, bag *diag.Bag) {
	bag.Add(diag.Diagnostic{
		Kind:     diag.DuplicateGlobalTypeName,
		Severity: diag.SeverityError,
		Site:     site,
		Message: "type " + name + " already declared; record and enum names " +
			"share one namespace across all modules",
		Related: []token.Site{prev},
	})
}

// buildItems maps one scope's declarations into resolved items.
func (r *Resolver) buildItems(decls []decl.Declaration, scopeNames map[string]string, env luatype.Env, bag *diag.Bag) []Item {
	var items []Item

	for _, d := range decls {
		switch d.Kind {
		case decl.KindFunc:
			fn := r.buildFunc(*d.Func, scopeNames[d.RawName()], env, bag)
			items = append(items, Item{Kind: decl.KindFunc, Func: &fn})

		case decl.KindRecord:
			rec := r.buildRecord(*d.Record, env.Types[d.Record.RawName], env, bag)
			items = append(items, Item{Kind: decl.KindRecord, Record: &rec})

		case decl.KindEnum:
			items = append(items, Item{Kind: decl.KindEnum, Enum: &Enum{
				Name:     env.Types[d.Enum.RawName],
				Doc:      d.Enum.Doc,
				Variants: d.Enum.Variants,
			}})
		}
	}

	return items
}

func (r *Resolver) buildFunc(f decl.Func, exported string, env luatype.Env, bag *diag.Bag) Func {
	if exported == "" {
		exported = f.RawName
	}
	out := Func{Name: exported, Doc: f.Doc}
	for _, p := range f.Sig.Params {
		out.Params = append(out.Params, Param{
			Name: p.Name,
			Type: r.mapper.Map(p.Type, env, f.Site, bag),
		})
	}
	out.Return = r.mapper.MapReturn(f.Sig.Return, env, f.Site, bag)
	return out
}

func (r *Resolver) buildRecord(rec decl.Record, exported string, env luatype.Env, bag *diag.Bag) Record {
	if exported == "" {
		exported = rec.RawName
	}
	recEnv := env
	recEnv.Self = exported

	out := Record{Name: exported, Doc: rec.Doc}

	for _, f := range rec.Fields {
		out.Fields = append(out.Fields, Field{
			Name: f.Name,
			Type: r.mapper.Map(f.Type, recEnv, f.Site, bag),
		})
	}

	memberScope := naming.NewScope()
	for _, f := range rec.Fields {
		memberScope.Place(f.Name, f.Site)
	}

	for _, m := range rec.Methods {
		name, warn := r.transformer.Export(decl.KindFunc, m.Func.RawName, m.Func.Rename, m.Func.Site, memberScope)
		if warn != nil {
			bag.Add(*warn)
		}
		if prev, taken := memberScope.Place(name, m.Func.Site); taken {
			bag.Add(diag.Diagnostic{
				Kind:     diag.DuplicateScopeName,
				Severity: diag.SeverityError,
				Site:     m.Func.Site,
				Message:  "member " + name + " already declared on " + exported,
				Related:  []token.Site{prev},
			})
			continue
		}
		out.Methods = append(out.Methods, r.buildFunc(m.Func, name, recEnv, bag))
	}

	ctorScope := naming.NewScope()
	for _, c := range rec.Constructors {
		name, warn := r.transformer.Export(decl.KindFunc, c.RawName, c.Rename, c.Site, ctorScope)
		if warn != nil {
			bag.Add(*warn)
		}
		if prev, taken := ctorScope.Place(name, c.Site); taken {
			bag.Add(diag.Diagnostic{
				Kind:     diag.DuplicateScopeName,
				Severity: diag.SeverityError,
				Site:     c.Site,
				Message:  "constructor " + name + " already declared on " + exported,
				Related:  []token.Site{prev},
			})
			continue
		}
		out.Constructors = append(out.Constructors, r.buildFunc(c, name, recEnv, bag))
	}

	return out
}

// fallbackName spells a named type the run never declared. Unprefixed
// pass-through matches the host convention for types provided by other
// binding crates.
func (r *Resolver) fallbackName(raw string) string {
	name, _ := r.transformer.Export(decl.KindRecord, raw, "", token.Site{}, naming.NewScope())
	return name
}
