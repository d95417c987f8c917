// Package render resolves SQL template files and expands them against a
// resolved variable set.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"bqflow/internal/jobspec"
)

// TemplateHandle is an opaque reference to a template file whose existence
// has been confirmed. No content is read until Render.
type TemplateHandle struct {
	// QueryName is the query the template belongs to, carried for error
	// reporting.
	QueryName string
	path      string
}

// Path returns the resolved absolute path of the template file.
func (h TemplateHandle) Path() string { return h.path }

// TemplateNotFoundError reports a template missing at resolve time. Because
// the validator has already confirmed existence, hitting this means the file
// disappeared between validation and rendering.
type TemplateNotFoundError struct {
	QueryName string
	Template  string
	Err       error
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("query %q: template %q not found: %v", e.QueryName, e.Template, e.Err)
}

func (e *TemplateNotFoundError) Unwrap() error { return e.Err }

// ResolveTemplate maps a query's relative template path to a file under
// templatesRoot, confirming it exists and is regular.
func ResolveTemplate(templatesRoot string, query *jobspec.QuerySpec) (TemplateHandle, error) {
	if filepath.IsAbs(query.Template) || !filepath.IsLocal(query.Template) {
		return TemplateHandle{}, &TemplateNotFoundError{
			QueryName: query.Name,
			Template:  query.Template,
			Err:       fmt.Errorf("path escapes templates root %s", templatesRoot),
		}
	}

	full := filepath.Join(templatesRoot, query.Template)
	info, err := os.Stat(full)
	if err != nil {
		return TemplateHandle{}, &TemplateNotFoundError{QueryName: query.Name, Template: query.Template, Err: err}
	}
	if !info.Mode().IsRegular() {
		return TemplateHandle{}, &TemplateNotFoundError{
			QueryName: query.Name,
			Template:  query.Template,
			Err:       fmt.Errorf("not a regular file"),
		}
	}

	return TemplateHandle{QueryName: query.Name, path: full}, nil
}
