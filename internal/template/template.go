// Package template renders alert message templates by substituting
// {{variable}} placeholders with snapshot values.
package template

import (
	"log/slog"
	"regexp"

	"github.com/PranavSehgalSJSU/272-Project/internal/source"
)

// placeholder identifiers share the variable grammar of condition
// expressions.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Rendered holds a rendered message pair.
type Rendered struct {
	Header string
	Body   string
}

// Templater substitutes snapshot values into message templates.
type Templater struct{}

// NewTemplater creates a templater.
func NewTemplater() *Templater {
	return &Templater{}
}

// Render renders the header and body templates against the snapshot.
func (t *Templater) Render(header, body string, data source.Snapshot) Rendered {
	return Rendered{
		Header: t.RenderString(header, data),
		Body:   t.RenderString(body, data),
	}
}

// RenderString renders one template string. With no data at all,
// placeholders are stripped; with data present but a variable missing, the
// placeholder becomes a visibly-marked [name] token so delivery problems are
// diagnosable from the message itself.
func (t *Templater) RenderString(template string, data source.Snapshot) string {
	if template == "" {
		return template
	}
	if len(data) == 0 {
		return placeholderPattern.ReplaceAllString(template, "")
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		val, ok := data[name]
		if !ok {
			slog.Warn("Template variable missing from source data", "variable", name)
			return "[" + name + "]"
		}
		return val.Render()
	})
}

// AllVariablesResolvable reports whether every placeholder in the template
// has a value in the data.
func (t *Templater) AllVariablesResolvable(template string, data source.Snapshot) bool {
	for _, name := range t.VariableNames(template) {
		if _, ok := data[name]; !ok {
			return false
		}
	}
	return true
}

// VariableNames extracts placeholder identifiers in order of first
// appearance, de-duplicated.
func (t *Templater) VariableNames(template string) []string {
	if template == "" {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
