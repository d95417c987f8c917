package render

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"bqflow/internal/jobspec"
)

// markerPattern matches variable references like {{ region }}. The marker
// body must be a bare identifier; anything else in the template text passes
// through untouched.
var markerPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// UndeclaredVariableError reports a template reference with no key in the
// resolved variable set. Silent empty-string substitution is never allowed:
// an empty identifier can yield SQL that parses but filters on nothing.
type UndeclaredVariableError struct {
	QueryName string
	Variable  string
}

func (e *UndeclaredVariableError) Error() string {
	return fmt.Sprintf("query %q: template references undeclared variable %q", e.QueryName, e.Variable)
}

// Renderer expands templates against resolved variables. The zero value is
// ready to use; it holds no state across renders, so identical inputs always
// produce byte-identical output.
type Renderer struct{}

// Render reads the template and substitutes every {{ name }} marker with
// the corresponding resolved value. The first marker that resolves to no
// key fails with *UndeclaredVariableError. Substituted values are taken
// verbatim — they are never re-scanned for further markers, so a value
// containing "{{" cannot trigger second-order expansion.
func (Renderer) Render(handle TemplateHandle, vars jobspec.ResolvedVariables) (string, error) {
	raw, err := os.ReadFile(handle.Path())
	if err != nil {
		return "", &TemplateNotFoundError{QueryName: handle.QueryName, Template: handle.Path(), Err: err}
	}
	text := string(raw)

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		value, ok := vars[name]
		if !ok {
			return "", &UndeclaredVariableError{QueryName: handle.QueryName, Variable: name}
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(value)
		last = loc[1]
	}
	b.WriteString(text[last:])

	return strings.TrimSpace(b.String()), nil
}
