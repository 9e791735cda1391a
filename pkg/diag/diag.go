// Package diag defines the diagnostic model shared by every pipeline stage.
//
// Per-declaration issues (a malformed marker, a nested module) exclude only
// the offending item and are reported as warnings next to an otherwise
// successful run. Structural issues (inclusion cycles, name collisions)
// violate invariants the whole output tree depends on, so they are fatal
// and block emission entirely.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/luadecl/pkg/token"
)

// Kind identifies a diagnostic category.
type Kind int

// Diagnostic kinds.
const (
	// MalformedMarker indicates a locally malformed annotated item,
	// e.g. a get/set pair disagreeing on the field type.
	MalformedMarker Kind = iota
	// NestedModuleForbidden indicates a module declared inside another
	// module's body. Composition happens only via inclusion.
	NestedModuleForbidden
	// InclusionCycle indicates a cycle in the module inclusion graph.
	InclusionCycle
	// DuplicateScopeName indicates two declarations resolving to the same
	// exported name within one scope.
	DuplicateScopeName
	// DuplicateGlobalTypeName indicates two record/enum declarations
	// resolving to the same exported type name anywhere in the run.
	// Type declarations occupy one flat namespace in the target runtime.
	DuplicateGlobalTypeName
	// UnsupportedType indicates a host type the mapper has no spelling for.
	UnsupportedType
	// IOFailure indicates a failure reading input or writing output.
	IOFailure
)

// String returns the diagnostic kind identifier.
func (k Kind) String() string {
	switch k {
	case MalformedMarker:
		return "MalformedMarker"
	case NestedModuleForbidden:
		return "NestedModuleForbidden"
	case InclusionCycle:
		return "InclusionCycle"
	case DuplicateScopeName:
		return "DuplicateScopeName"
	case DuplicateGlobalTypeName:
		return "DuplicateGlobalTypeName"
	case UnsupportedType:
		return "UnsupportedType"
	case IOFailure:
		return "IOFailure"
	default:
		return "unknown"
	}
}

// Severity indicates whether a diagnostic blocks emission.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError blocks emission.
	SeverityError Severity = iota
	// SeverityWarning excludes the offending item only.
	SeverityWarning
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	default:
		return SeverityWarning, false
	}
}

// Diagnostic is one reported issue. Conflicting-name diagnostics carry the
// other conflicting declaration in Related.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Site     token.Site
	Message  string
	Related  []token.Site
}

// String renders the diagnostic as "severity site: message [kind]".
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s [%s]", d.Severity, d.Site, d.Message, d.Kind)
	for _, r := range d.Related {
		fmt.Fprintf(&b, " (see %s)", r)
	}
	return b.String()
}

// Bag collects diagnostics across pipeline stages. The zero value is usable.
//
// Checks run to completion and report every violation before a run aborts,
// so the bag never short-circuits on the first error.
type Bag struct {
	diags []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.diags = append(b.diags, d)
}

// Addf appends a diagnostic with a formatted message.
func (b *Bag) Addf(kind Kind, sev Severity, site token.Site, format string, args ...any) {
	b.Add(Diagnostic{
		Kind:     kind,
		Severity: sev,
		Site:     site,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends all diagnostics from another bag.
func (b *Bag) Merge(other *Bag) {
	if other != nil {
		b.diags = append(b.diags, other.diags...)
	}
}

// HasFatal returns true if any collected diagnostic is an error.
func (b *Bag) HasFatal() bool {
	for _, d := range b.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the number of collected diagnostics.
func (b *Bag) Len() int {
	return len(b.diags)
}

// All returns the diagnostics sorted by unit, position and kind.
// Sorting keeps reports stable regardless of which worker found what first.
func (b *Bag) All() []Diagnostic {
	out := make([]Diagnostic, len(b.diags))
	copy(out, b.diags)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Site.Unit != out[j].Site.Unit {
			return out[i].Site.Unit < out[j].Site.Unit
		}
		if out[i].Site.Pos.Line != out[j].Site.Pos.Line {
			return out[i].Site.Pos.Line < out[j].Site.Pos.Line
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
