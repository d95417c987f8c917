package jobspec

import (
	"fmt"
	"os"
	"path/filepath"
)

// Valid write dispositions.
var validWriteDispositions = map[string]bool{
	WriteTruncate: true,
	WriteAppend:   true,
	WriteEmpty:    true,
}

// Valid environment names.
var validEnvironments = map[string]bool{
	"dev":   true,
	"stage": true,
	"prod":  true,
}

// Labels every production job is expected to carry. Missing ones are
// warnings, not errors, so render/dry-run workflows are not blocked.
var recommendedLabels = []string{"owner", "domain", "environment"}

// Validate checks a loaded spec for semantic correctness, including that
// every referenced template exists under templatesRoot. It accumulates all
// issues rather than stopping at the first; an empty result means the spec
// is valid. It never fails for well-formed specs.
func Validate(spec *JobSpec, templatesRoot string) []Issue {
	var issues []Issue

	// 1. Required fields.
	if spec.JobName == "" {
		addIssue(&issues, SeverityError, "job_name", "job_name is required")
	}
	if spec.Destination.Dataset == "" {
		addIssue(&issues, SeverityError, "destination.dataset", "dataset is required")
	}
	if spec.Destination.Table == "" && len(spec.Queries) > 0 && !allQueriesOverrideDestination(spec.Queries) {
		addIssue(&issues, SeverityError, "destination.table", "table is required unless every query overrides the destination")
	}
	if len(spec.Queries) == 0 {
		addIssue(&issues, SeverityError, "queries", "at least one query is required")
	}

	// 2. Per-query checks: required fields, name uniqueness, templates,
	// variable shape, destination overrides.
	byName := make(map[string][]int, len(spec.Queries))
	for i, q := range spec.Queries {
		if q.Name != "" {
			byName[q.Name] = append(byName[q.Name], i)
		}
	}
	for i, q := range spec.Queries {
		path := fmt.Sprintf("queries[%d]", i)

		if q.Name == "" {
			addIssue(&issues, SeverityError, path+".name", "name is required")
		} else if idxs := byName[q.Name]; len(idxs) > 1 {
			addIssue(&issues, SeverityError, path+".name", "duplicate query name %q (also at %s)", q.Name, otherPaths(idxs, i))
		}

		if q.Template == "" {
			addIssue(&issues, SeverityError, path+".template", "template is required")
		} else {
			validateTemplatePath(q.Template, templatesRoot, path+".template", &issues)
		}

		validateVariableMap(q.Variables, path+".variables", &issues)

		if q.WriteDisposition != "" && !validWriteDispositions[normalizeDisposition(q.WriteDisposition)] {
			addIssue(&issues, SeverityError, path+".write_disposition",
				"write_disposition must be one of [WRITE_TRUNCATE, WRITE_APPEND, WRITE_EMPTY], got %q", q.WriteDisposition)
		}

		if q.Destination != nil {
			if q.Destination.Dataset == "" {
				addIssue(&issues, SeverityError, path+".destination.dataset", "dataset is required in destination override")
			}
			if q.Destination.Table == "" {
				addIssue(&issues, SeverityError, path+".destination.table", "table is required in destination override")
			}
		}
	}

	// 3. Defaults shape.
	validateVariableMap(spec.Defaults, "defaults", &issues)

	// 4. Schedule, when present. Render/dry-run work without one; deploy
	// enforces presence separately.
	if spec.Schedule != "" {
		if err := ValidateSchedule(spec.Schedule); err != nil {
			addIssue(&issues, SeverityError, "schedule", "%v", err)
		}
	}

	// 5. Limits.
	if spec.Limits.MaxBytesBilled < 0 {
		addIssue(&issues, SeverityError, "limits.max_bytes_billed", "must be >= 0, got %d", spec.Limits.MaxBytesBilled)
	}

	// 6. Labels and environment.
	validateLabels(spec, &issues)

	return issues
}

func addIssue(issues *[]Issue, sev Severity, path, msg string, args ...any) {
	*issues = append(*issues, Issue{
		Severity: sev,
		Path:     path,
		Message:  fmt.Sprintf(msg, args...),
	})
}

func allQueriesOverrideDestination(queries []QuerySpec) bool {
	for _, q := range queries {
		if q.Destination == nil {
			return false
		}
	}
	return true
}

// otherPaths formats the dotted paths of the duplicate occurrences other
// than self, so every colliding entry cites its siblings.
func otherPaths(idxs []int, self int) string {
	s := ""
	for _, idx := range idxs {
		if idx == self {
			continue
		}
		if s != "" {
			s += ", "
		}
		s += fmt.Sprintf("queries[%d].name", idx)
	}
	return s
}

// validateTemplatePath checks that the relative template path stays inside
// templatesRoot and resolves to a regular file. Traversal is reported as an
// issue rather than silently normalized away.
func validateTemplatePath(template, templatesRoot, path string, issues *[]Issue) {
	if filepath.IsAbs(template) || !filepath.IsLocal(template) {
		addIssue(issues, SeverityError, path, "template path %q escapes the templates root", template)
		return
	}
	full := filepath.Join(templatesRoot, template)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			addIssue(issues, SeverityError, path, "template file %q not found under %s", template, templatesRoot)
		} else {
			addIssue(issues, SeverityError, path, "template file %q: %v", template, err)
		}
		return
	}
	if !info.Mode().IsRegular() {
		addIssue(issues, SeverityError, path, "template path %q is not a regular file", template)
	}
}

// validateVariableMap flags values that are not renderable scalars.
// Variables are substituted verbatim into SQL text, so nested collections
// have no meaningful representation.
func validateVariableMap(vars map[string]any, path string, issues *[]Issue) {
	for key, value := range vars {
		if _, ok := scalarString(value); !ok {
			addIssue(issues, SeverityError, fmt.Sprintf("%s.%s", path, key),
				"value must be a scalar (string, number, or bool), got %T", value)
		}
	}
}

func validateLabels(spec *JobSpec, issues *[]Issue) {
	for _, lbl := range recommendedLabels {
		if _, ok := spec.Labels[lbl]; !ok {
			addIssue(issues, SeverityWarning, "labels."+lbl, "recommended label %q is not set", lbl)
		}
	}

	env := spec.Environment
	if env == "" {
		env = spec.Labels["environment"]
	}
	if env != "" && !validEnvironments[env] {
		addIssue(issues, SeverityError, "environment", "environment must be one of [dev, stage, prod], got %q", env)
	}
	if spec.Environment != "" && spec.Labels["environment"] != "" && spec.Environment != spec.Labels["environment"] {
		addIssue(issues, SeverityError, "environment",
			"environment %q conflicts with labels.environment %q", spec.Environment, spec.Labels["environment"])
	}
}
