package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/luadecl/internal/cli/output"
	"github.com/leapstack-labs/luadecl/pkg/diag"
)

// printDiagnostics writes every diagnostic as one styled line, related
// sites indented beneath it.
func printDiagnostics(w io.Writer, bag *diag.Bag, styles *output.Styles) {
	for _, d := range bag.All() {
		label := severityStyle(styles, d.Severity).Render(d.Severity.String())
		site := styles.Muted.Render(d.Site.String())
		fmt.Fprintf(w, "%s %s: %s %s\n", label, site, d.Message, styles.Muted.Render("["+d.Kind.String()+"]"))
		for _, rel := range d.Related {
			fmt.Fprintf(w, "    %s %s\n", styles.Muted.Render("see also"), styles.Muted.Render(rel.String()))
		}
	}
}

// printSummary renders a per-severity count table.
func printSummary(w io.Writer, bag *diag.Bag) {
	errors, warnings := 0, 0
	for _, d := range bag.All() {
		if d.Severity == diag.SeverityError {
			errors++
		} else {
			warnings++
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Count"})
	t.AppendRow(table.Row{"error", errors})
	t.AppendRow(table.Row{"warning", warnings})
	t.Render()
}

func severityStyle(styles *output.Styles, sev diag.Severity) lipgloss.Style {
	switch sev {
	case diag.SeverityError:
		return styles.Error
	case diag.SeverityWarning:
		return styles.Warning
	default:
		return styles.Muted
	}
}
