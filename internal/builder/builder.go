// Package builder turns annotation manifest records into the typed
// declaration model. Building is a pure function of one source unit, so
// units can be processed in parallel and merged before resolution.
package builder

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/leapstack-labs/luadecl/internal/manifest"
	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/sig"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

// Builder classifies annotated declaration records.
type Builder struct {
	logger *slog.Logger
}

// New creates a Builder. A nil logger discards log output.
func New(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// BuildFile models every declaration in one manifest. Locally malformed
// items are dropped and reported; the rest of the unit still builds.
func (b *Builder) BuildFile(f *manifest.File) ([]decl.Declaration, *diag.Bag) {
	bag := &diag.Bag{}
	decls := b.buildDecls(f.Unit, f.Decls, false, bag)
	b.logger.Debug("built unit",
		"unit", f.Unit,
		"declarations", len(decls),
		"diagnostics", bag.Len())
	return decls, bag
}

// buildDecls classifies a record list. insideModule guards the
// inclusion-only composition rule.
func (b *Builder) buildDecls(unit string, records []manifest.Record, insideModule bool, bag *diag.Bag) []decl.Declaration {
	var out []decl.Declaration

	for _, rec := range records {
		site := token.Site{Unit: unit, Pos: token.Position{Line: rec.Line}}

		switch strings.ToLower(rec.Kind) {
		case "func", "function":
			if fn, ok := b.buildFunc(unit, rec, bag); ok {
				out = append(out, decl.Declaration{Kind: decl.KindFunc, Func: fn})
			}
		case "record":
			if r, ok := b.buildRecord(unit, rec, bag); ok {
				out = append(out, decl.Declaration{Kind: decl.KindRecord, Record: r})
			}
		case "enum":
			if e, ok := b.buildEnum(unit, rec, bag); ok {
				out = append(out, decl.Declaration{Kind: decl.KindEnum, Enum: e})
			}
		case "module":
			if insideModule {
				// Modules compose through inclusion references, never
				// by textual nesting. The parent keeps its other items.
				bag.Addf(diag.NestedModuleForbidden, diag.SeverityWarning, site,
					"module %q declared inside another module's body; compose via includes instead", rec.Name)
				continue
			}
			if m, ok := b.buildModule(unit, rec, bag); ok {
				out = append(out, decl.Declaration{Kind: decl.KindModule, Module: m})
			}
		default:
			bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site,
				"unknown declaration kind %q", rec.Kind)
		}
	}

	return out
}

func (b *Builder) buildFunc(unit string, rec manifest.Record, bag *diag.Bag) (*decl.Func, bool) {
	site := token.Site{Unit: unit, Pos: token.Position{Line: rec.Line}}

	parsed, err := sig.Parse(rec.Signature)
	if err != nil {
		bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site,
			"malformed function signature %q: %v", rec.Signature, err)
		return nil, false
	}
	if _, hasRecv := parsed.Receiver(); hasRecv {
		bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site,
			"free function %q must not take a receiver", parsed.Name)
		return nil, false
	}

	return &decl.Func{
		RawName: parsed.Name,
		Rename:  rec.Rename,
		Doc:     rec.Doc,
		Site:    site,
		Sig:     toSignature(parsed),
	}, true
}

// accessor is one half of a get/set pair while fields are being merged.
type accessor struct {
	typ  decl.TypeRef
	site token.Site
}

func (b *Builder) buildRecord(unit string, rec manifest.Record, bag *diag.Bag) (*decl.Record, bool) {
	site := token.Site{Unit: unit, Pos: token.Position{Line: rec.Line}}
	if rec.Name == "" {
		bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site, "record without a name")
		return nil, false
	}

	r := &decl.Record{
		RawName: rec.Name,
		Rename:  rec.Rename,
		Doc:     rec.Doc,
		Site:    site,
	}

	getters := map[string]accessor{}
	setters := map[string]accessor{}
	fieldOrder := []string{}

	note := func(m map[string]accessor, name string, a accessor) {
		if _, seenG := getters[name]; !seenG {
			if _, seenS := setters[name]; !seenS {
				fieldOrder = append(fieldOrder, name)
			}
		}
		m[name] = a
	}

	for _, mem := range rec.Members {
		msite := token.Site{Unit: unit, Pos: token.Position{Line: mem.Line}}

		parsed, err := sig.Parse(mem.Signature)
		if err != nil {
			bag.Addf(diag.MalformedMarker, diag.SeverityWarning, msite,
				"malformed %s marker on %s: %v", mem.Tag, rec.Name, err)
			continue
		}
		recv, hasRecv := parsed.Receiver()
		users := parsed.UserParams()

		switch strings.ToLower(mem.Tag) {
		case "get":
			// get requires (context, &self) -> T
			if !parsed.HasContext() || !hasRecv || recv != sig.ParamSelfRef || len(users) != 0 || parsed.Return.IsUnit() {
				bag.Addf(diag.MalformedMarker, diag.SeverityWarning, msite,
					"getter %q must have signature (context, &self) -> T", parsed.Name)
				continue
			}
			note(getters, parsed.Name, accessor{typ: parsed.Return, site: msite})

		case "set":
			// set requires (context, &mut self, T) -> ()
			if !parsed.HasContext() || !hasRecv || recv != sig.ParamSelfMut || len(users) != 1 || !parsed.Return.IsUnit() {
				bag.Addf(diag.MalformedMarker, diag.SeverityWarning, msite,
					"setter %q must have signature (context, &mut self, T) -> ()", parsed.Name)
				continue
			}
			note(setters, parsed.Name, accessor{typ: users[0].Type, site: msite})

		case "method", "method_mut":
			want := sig.ParamSelfRef
			receiver := decl.ReceiverRef
			if strings.EqualFold(mem.Tag, "method_mut") {
				want = sig.ParamSelfMut
				receiver = decl.ReceiverMut
			}
			if !hasRecv || recv != want {
				bag.Addf(diag.MalformedMarker, diag.SeverityWarning, msite,
					"%s %q has the wrong receiver", mem.Tag, parsed.Name)
				continue
			}
			r.Methods = append(r.Methods, decl.Method{
				Receiver: receiver,
				Func: decl.Func{
					RawName: parsed.Name,
					Doc:     mem.Doc,
					Site:    msite,
					Sig:     toSignature(parsed),
				},
			})

		case "func", "constructor":
			// No receiver: a constructor-style function living on the
			// record's table, returning the record type.
			if hasRecv {
				bag.Addf(diag.MalformedMarker, diag.SeverityWarning, msite,
					"constructor %q must not take a receiver", parsed.Name)
				continue
			}
			r.Constructors = append(r.Constructors, decl.Func{
				RawName: parsed.Name,
				Doc:     mem.Doc,
				Site:    msite,
				Sig:     toSignature(parsed),
			})

		default:
			bag.Addf(diag.MalformedMarker, diag.SeverityWarning, msite,
				"unknown member tag %q on %s", mem.Tag, rec.Name)
		}
	}

	// Merge accessor pairs into fields, in first-appearance order.
	for _, name := range fieldOrder {
		get, hasGet := getters[name]
		set, hasSet := setters[name]

		if hasGet && hasSet && !get.typ.Equal(set.typ) {
			d := diag.Diagnostic{
				Kind:     diag.MalformedMarker,
				Severity: diag.SeverityWarning,
				Site:     get.site,
				Message: fmt.Sprintf("getter and setter for field %q disagree on type: %s vs %s",
					name, get.typ, set.typ),
				Related: []token.Site{set.site},
			}
			bag.Add(d)
			continue // pair dropped from the model
		}

		field := decl.Field{Name: name, HasGetter: hasGet, HasSetter: hasSet}
		if hasGet {
			field.Type = get.typ
			field.Site = get.site
		} else {
			field.Type = set.typ
			field.Site = set.site
		}
		r.Fields = append(r.Fields, field)
	}

	return r, true
}

func (b *Builder) buildEnum(unit string, rec manifest.Record, bag *diag.Bag) (*decl.Enum, bool) {
	site := token.Site{Unit: unit, Pos: token.Position{Line: rec.Line}}
	if rec.Name == "" {
		bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site, "enum without a name")
		return nil, false
	}

	e := &decl.Enum{
		RawName: rec.Name,
		Rename:  rec.Rename,
		Doc:     rec.Doc,
		Site:    site,
	}

	// Discriminants auto-increment from zero; an explicit "= N" resets
	// the counter and numbering continues from there.
	next := 0
	seen := map[int]string{}
	for _, raw := range rec.Variants {
		name, value, err := parseVariant(raw, next)
		if err != nil {
			bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site,
				"enum %s: %v", rec.Name, err)
			return nil, false
		}
		if prev, dup := seen[value]; dup {
			bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site,
				"enum %s: variants %s and %s share discriminant %d", rec.Name, prev, name, value)
			return nil, false
		}
		seen[value] = name
		e.Variants = append(e.Variants, decl.Variant{Name: name, Value: value})
		next = value + 1
	}

	return e, true
}

// parseVariant splits "Name" or "Name = N" manifest spellings.
func parseVariant(raw string, next int) (string, int, error) {
	name, expr, explicit := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, fmt.Errorf("variant %q has no name", raw)
	}
	if !explicit {
		return name, next, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(expr))
	if err != nil || value < 0 {
		return "", 0, fmt.Errorf("variant %s: discriminant must be a non-negative integer", name)
	}
	return name, value, nil
}

func (b *Builder) buildModule(unit string, rec manifest.Record, bag *diag.Bag) (*decl.Module, bool) {
	site := token.Site{Unit: unit, Pos: token.Position{Line: rec.Line}}
	if rec.Name == "" {
		bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site, "module without a name")
		return nil, false
	}

	m := &decl.Module{
		RawName: rec.Name,
		Rename:  rec.Rename,
		Doc:     rec.Doc,
		Site:    site,
		Main:    rec.Main,
	}

	seen := map[string]bool{}
	for _, inc := range rec.Includes {
		target := strings.TrimSpace(inc)
		if target == "" {
			continue
		}
		if seen[target] {
			bag.Addf(diag.MalformedMarker, diag.SeverityWarning, site,
				"module %s includes %s more than once", rec.Name, target)
			continue
		}
		seen[target] = true
		m.Includes = append(m.Includes, decl.Include{Target: target, Site: site})
	}

	m.Decls = b.buildDecls(unit, rec.Decls, true, bag)
	return m, true
}

// toSignature converts a parsed signature to the model form, dropping the
// context and receiver parameters.
func toSignature(parsed sig.Parsed) decl.Signature {
	out := decl.Signature{Return: parsed.Return, Fallible: parsed.Fallible}
	for _, p := range parsed.UserParams() {
		out.Params = append(out.Params, decl.Param{Name: p.Name, Type: p.Type})
	}
	return out
}
