// Package formatter renders a structured report as the plain text block shown
// to the officer, sent back for edits, and submitted for document download.
package formatter

import (
	"strings"

	"github.com/Nephrolytics-ai/pd-report/pkg/model"
)

// Format renders report as text. Known fields come first in their fixed order,
// followed by one blank line, then every other field in report order. A nested
// object renders as an upper-cased header with indented sub-fields. Each
// remaining field is followed by a blank line, and the result is trimmed.
func Format(report model.Report) string {
	var b strings.Builder

	for _, name := range model.KnownFields {
		value, ok := report.Get(name)
		if !ok {
			continue
		}
		writeLine(&b, "", Humanize(name), value)
	}
	b.WriteString("\n")

	for _, field := range report.Fields() {
		if model.IsKnownField(field.Name) {
			continue
		}

		if field.Value.IsObject() {
			b.WriteString(HumanizeHeader(field.Name))
			b.WriteString(":\n")
			for _, sub := range field.Value.Fields() {
				writeLine(&b, "  ", Humanize(sub.Name), sub.Value)
			}
		} else {
			writeLine(&b, "", Humanize(field.Name), field.Value)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

// Humanize replaces every underscore in a field name with a space.
func Humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// HumanizeHeader is Humanize upper-cased, used for nested object headers.
func HumanizeHeader(name string) string {
	return strings.ToUpper(Humanize(name))
}

func writeLine(b *strings.Builder, indent string, label string, value model.Value) {
	b.WriteString(indent)
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value.String())
	b.WriteString("\n")
}
