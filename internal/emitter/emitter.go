// Package emitter renders the resolved declaration tree as Luau ambient
// declaration text and writes it out atomically.
//
// Rendering is a pure function of the tree: the same tree always yields
// byte-identical output, so generated stubs diff cleanly under version
// control.
package emitter

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/luadecl/internal/resolver"
	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

const indentUnit = "    "

// Emitter renders and writes declaration stubs.
type Emitter struct {
	logger *slog.Logger
}

// New creates an Emitter. A nil logger discards log output.
func New(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{logger: logger}
}

// Render produces the whole tree as one declaration file: exported type
// shapes first, then root declarations, then top-level module tables.
func (e *Emitter) Render(tree *resolver.Tree) string {
	var types, decls strings.Builder
	seen := map[string]bool{}

	for _, item := range tree.Root {
		e.item(&types, &decls, item, 0, seen)
	}
	for _, m := range tree.Modules {
		e.module(&types, &decls, m, 0, seen)
	}

	return join(types.String(), decls.String())
}

// RenderModule produces one top-level module as a standalone file,
// carrying the exported type shapes of the records it (transitively)
// declares.
func (e *Emitter) RenderModule(m *resolver.Module) string {
	var types, decls strings.Builder
	e.module(&types, &decls, m, 0, map[string]bool{})
	return join(types.String(), decls.String())
}

// Write renders the tree to outputPath. A directory target gets one
// <module>.d.luau per top-level module (plus globals.d.luau when root
// declarations exist); a file target gets everything in one file. Each
// file is written to a temp sibling and renamed into place, so a failed
// write never leaves a partial artifact.
func (e *Emitter) Write(outputPath string, tree *resolver.Tree) ([]string, *diag.Bag) {
	bag := &diag.Bag{}

	info, err := os.Stat(outputPath)
	if err == nil && info.IsDir() {
		return e.writeDir(outputPath, tree, bag)
	}

	if err := e.writeFile(outputPath, e.Render(tree)); err != nil {
		bag.Addf(diag.IOFailure, diag.SeverityError, token.Site{},
			"writing %s: %v", outputPath, err)
		return nil, bag
	}
	return []string{outputPath}, bag
}

func (e *Emitter) writeDir(dir string, tree *resolver.Tree, bag *diag.Bag) ([]string, *diag.Bag) {
	type out struct {
		path string
		text string
	}
	var outs []out

	if len(tree.Root) > 0 {
		var types, decls strings.Builder
		seen := map[string]bool{}
		for _, item := range tree.Root {
			e.item(&types, &decls, item, 0, seen)
		}
		outs = append(outs, out{
			path: filepath.Join(dir, "globals.d.luau"),
			text: join(types.String(), decls.String()),
		})
	}
	for _, m := range tree.Modules {
		outs = append(outs, out{
			path: filepath.Join(dir, m.Name+".d.luau"),
			text: e.RenderModule(m),
		})
	}

	sort.Slice(outs, func(i, j int) bool { return outs[i].path < outs[j].path })

	var written []string
	for _, o := range outs {
		if err := e.writeFile(o.path, o.text); err != nil {
			bag.Addf(diag.IOFailure, diag.SeverityError, token.Site{},
				"writing %s: %v", o.path, err)
			continue
		}
		written = append(written, o.path)
	}
	return written, bag
}

// writeFile writes atomically: temp file in the target directory, then
// rename. Rename within one directory replaces the old file in one step.
func (e *Emitter) writeFile(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".luadecl-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	e.logger.Debug("wrote declaration file", "path", path, "bytes", len(text))
	return nil
}

// item renders one declaration at the given depth. Exported record type
// shapes always land in the global section regardless of depth; the
// value-level table goes into the enclosing scope.
func (e *Emitter) item(types, decls *strings.Builder, it resolver.Item, depth int, seen map[string]bool) {
	switch it.Kind {
	case decl.KindFunc:
		e.function(decls, *it.Func, depth)
	case decl.KindRecord:
		e.recordType(types, *it.Record, seen)
		e.recordTable(decls, *it.Record, depth)
	case decl.KindEnum:
		e.enum(decls, *it.Enum, depth)
	}
}

func (e *Emitter) function(w *strings.Builder, f resolver.Func, depth int) {
	ind := strings.Repeat(indentUnit, depth)
	doc(w, f.Doc, ind)

	if depth == 0 {
		w.WriteString("declare function " + f.Name + "(" + params(f.Params) + "): " + orUnit(f.Return) + "\n")
		return
	}
	w.WriteString(ind + f.Name + ": " + funcType("", f) + ",\n")
}

// recordType renders the export type shape: merged accessor fields plus
// methods as self-taking function types. A record reached through more
// than one inclusion site renders its table at every site, but its type
// shape only the first time per output file.
func (e *Emitter) recordType(w *strings.Builder, r resolver.Record, seen map[string]bool) {
	if seen[r.Name] {
		return
	}
	seen[r.Name] = true
	doc(w, r.Doc, "")
	w.WriteString("export type " + r.Name + " = {\n")
	for _, f := range r.Fields {
		w.WriteString(indentUnit + f.Name + ": " + f.Type + ",\n")
	}
	for _, m := range r.Methods {
		w.WriteString(indentUnit + m.Name + ": " + funcType(r.Name, m) + ",\n")
	}
	w.WriteString("}\n")
}

// recordTable renders the constructor table declared at the record's
// owning scope.
func (e *Emitter) recordTable(w *strings.Builder, r resolver.Record, depth int) {
	ind := strings.Repeat(indentUnit, depth)
	doc(w, r.Doc, ind)
	w.WriteString(ind + declare(r.Name, depth) + "{\n")
	for _, c := range r.Constructors {
		w.WriteString(ind + indentUnit + c.Name + ": " + funcType("", c) + ",\n")
	}
	w.WriteString(ind + closeTable(depth))
}

func (e *Emitter) enum(w *strings.Builder, en resolver.Enum, depth int) {
	ind := strings.Repeat(indentUnit, depth)
	doc(w, en.Doc, ind)
	w.WriteString(ind + declare(en.Name, depth) + "{\n")
	for _, v := range en.Variants {
		w.WriteString(ind + indentUnit + v.Name + " = " + strconv.Itoa(v.Value) + ",\n")
	}
	w.WriteString(ind + closeTable(depth))
}

// module renders a module table. Included modules nest beneath their own
// exported names after the module's own declarations.
func (e *Emitter) module(types, decls *strings.Builder, m *resolver.Module, depth int, seen map[string]bool) {
	ind := strings.Repeat(indentUnit, depth)
	doc(decls, m.Doc, ind)
	decls.WriteString(ind + declare(m.Name, depth) + "{\n")
	for _, it := range m.Items {
		e.item(types, decls, it, depth+1, seen)
	}
	for _, inc := range m.Included {
		e.module(types, decls, inc, depth+1, seen)
	}
	decls.WriteString(ind + closeTable(depth))
}

// declare opens a table: "declare name: " at global depth, "name: " nested.
func declare(name string, depth int) string {
	if depth == 0 {
		return "declare " + name + ": "
	}
	return name + ": "
}

// closeTable closes a table: nested tables take a trailing comma.
func closeTable(depth int) string {
	if depth == 0 {
		return "}\n"
	}
	return "},\n"
}

// doc writes a "--[[doc]]" line above a declaration.
func doc(w *strings.Builder, text, ind string) {
	if text == "" {
		return
	}
	w.WriteString(ind + "--[[" + text + "]]\n")
}

// funcType renders a function type: "(self: Name, a: T) -> Ret". The
// self parameter is included only for methods (non-empty selfType).
func funcType(selfType string, f resolver.Func) string {
	var b strings.Builder
	b.WriteString("(")
	if selfType != "" {
		b.WriteString("self: " + selfType)
		if len(f.Params) > 0 {
			b.WriteString(", ")
		}
	}
	b.WriteString(params(f.Params))
	b.WriteString(") -> " + orUnit(f.Return))
	return b.String()
}

// params renders "a: T, b: U".
func params(ps []resolver.Param) string {
	var b strings.Builder
	for i, p := range ps {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name + ": " + p.Type)
	}
	return b.String()
}

// orUnit spells an absent return type as "()".
func orUnit(ret string) string {
	if ret == "" {
		return "()"
	}
	return ret
}

// join stitches the type section and the declaration section with one
// blank line between them when both are present.
func join(types, decls string) string {
	if types == "" {
		return decls
	}
	if decls == "" {
		return types
	}
	return types + "\n" + decls
}
