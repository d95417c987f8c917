// Package pipeline sequences spec loading, validation, variable resolution,
// and SQL rendering into a single entry point.
package pipeline

import (
	"log/slog"

	"bqflow/internal/jobspec"
	"bqflow/internal/render"
)

// RenderedQuery is one fully rendered unit of work, retaining the exact
// variable set used so dry-run and deploy act on what render showed.
type RenderedQuery struct {
	Name             string
	SQL              string
	Destination      jobspec.Destination
	WriteDisposition string
	Variables        jobspec.ResolvedVariables
}

// ResolvedJob is the pipeline's output: every query rendered, in spec
// order, plus the job-level settings the service clients need. It is owned
// by the caller and never retained by the pipeline.
type ResolvedJob struct {
	JobName        string
	Schedule       string
	Labels         map[string]string
	Environment    string
	MaxBytesBilled int64
	Queries        []RenderedQuery

	// Warnings carries any non-blocking validation issues for surfacing
	// by the command layer.
	Warnings []jobspec.Issue
}

// Resolver composes the pipeline stages. Construct with NewResolver; the
// renderer is an explicit value rather than shared global state.
type Resolver struct {
	renderer render.Renderer
	logger   *slog.Logger
}

// NewResolver returns a Resolver logging through the given logger.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Validate loads the spec and returns the full validation issue list. This
// is the stopping point for the validate command; other operations continue
// through Resolve.
func (r *Resolver) Validate(specPath, templatesRoot string) (*jobspec.JobSpec, []jobspec.Issue, error) {
	spec, err := jobspec.Load(specPath)
	if err != nil {
		return nil, nil, err
	}
	return spec, jobspec.Validate(spec, templatesRoot), nil
}

// Resolve runs the full pipeline: load, validate, then per query resolve
// the template and variables and render the final SQL. Any error-severity
// validation issue aborts with *jobspec.ValidationError carrying the whole
// list; warnings are logged and attached to the result.
//
// Rendering failures past validation (missing template, undeclared
// variable) indicate either a race on the template directory or a template
// referencing variables nobody declared; both are terminal.
func (r *Resolver) Resolve(specPath, templatesRoot string) (*ResolvedJob, error) {
	spec, issues, err := r.Validate(specPath, templatesRoot)
	if err != nil {
		return nil, err
	}

	var warnings []jobspec.Issue
	for _, issue := range issues {
		if issue.Severity == jobspec.SeverityWarning {
			warnings = append(warnings, issue)
			r.logger.Warn("spec warning", "path", issue.Path, "message", issue.Message)
		}
	}
	if jobspec.HasErrors(issues) {
		return nil, &jobspec.ValidationError{JobName: spec.JobName, Issues: issues}
	}

	job := &ResolvedJob{
		JobName:        spec.JobName,
		Schedule:       spec.Schedule,
		Labels:         spec.Labels,
		Environment:    spec.Environment,
		MaxBytesBilled: spec.Limits.MaxBytesBilled,
		Queries:        make([]RenderedQuery, 0, len(spec.Queries)),
		Warnings:       warnings,
	}

	for i := range spec.Queries {
		query := &spec.Queries[i]

		handle, err := render.ResolveTemplate(templatesRoot, query)
		if err != nil {
			return nil, err
		}

		vars := jobspec.ResolveVariables(spec, query)
		sql, err := r.renderer.Render(handle, vars)
		if err != nil {
			return nil, err
		}

		job.Queries = append(job.Queries, RenderedQuery{
			Name:             query.Name,
			SQL:              sql,
			Destination:      query.EffectiveDestination(spec),
			WriteDisposition: query.EffectiveWriteDisposition(),
			Variables:        vars,
		})
		r.logger.Debug("rendered query", "job", spec.JobName, "query", query.Name, "bytes", len(sql))
	}

	return job, nil
}
