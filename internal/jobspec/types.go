// Package jobspec loads and validates declarative SQL job specifications.
package jobspec

import "fmt"

// Write dispositions accepted by BigQuery load/query jobs.
const (
	WriteTruncate = "WRITE_TRUNCATE"
	WriteAppend   = "WRITE_APPEND"
	WriteEmpty    = "WRITE_EMPTY"
)

// DefaultWriteDisposition is applied when a query does not set one.
const DefaultWriteDisposition = WriteTruncate

// Destination identifies the table a query writes to. Project is optional;
// when empty the project is taken from the CLI/environment at deploy time.
type Destination struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`
}

// IsZero reports whether no destination fields are set.
func (d Destination) IsZero() bool {
	return d.Project == "" && d.Dataset == "" && d.Table == ""
}

// String returns the dotted table identifier, omitting an unset project.
func (d Destination) String() string {
	if d.Project != "" {
		return d.Project + "." + d.Dataset + "." + d.Table
	}
	return d.Dataset + "." + d.Table
}

// Limits holds cost-control settings forwarded to BigQuery.
type Limits struct {
	MaxBytesBilled int64 `yaml:"max_bytes_billed"`
}

// QuerySpec is one unit of work within a job: a SQL template plus the
// variables and destination used to render and execute it.
type QuerySpec struct {
	Name             string         `yaml:"name"`
	Template         string         `yaml:"template"`
	Variables        map[string]any `yaml:"variables"`
	WriteDisposition string         `yaml:"write_disposition"`
	Destination      *Destination   `yaml:"destination"`
}

// EffectiveDestination returns the query's destination override, or the
// job-level destination when the query has none.
func (q *QuerySpec) EffectiveDestination(job *JobSpec) Destination {
	if q.Destination != nil {
		return *q.Destination
	}
	return job.Destination
}

// EffectiveWriteDisposition returns the normalized write disposition,
// defaulting to WRITE_TRUNCATE.
func (q *QuerySpec) EffectiveWriteDisposition() string {
	if q.WriteDisposition == "" {
		return DefaultWriteDisposition
	}
	return normalizeDisposition(q.WriteDisposition)
}

// JobSpec is the root of a job specification document.
type JobSpec struct {
	JobName     string            `yaml:"job_name"`
	Schedule    string            `yaml:"schedule"`
	Destination Destination       `yaml:"destination"`
	Defaults    map[string]any    `yaml:"defaults"`
	Labels      map[string]string `yaml:"labels"`
	Environment string            `yaml:"environment"`
	Limits      Limits            `yaml:"limits"`
	Queries     []QuerySpec       `yaml:"queries"`
}

// ResolvedVariables is the final flattened key→value mapping used to render
// one query's template.
type ResolvedVariables map[string]string

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation problem located by a dotted path into the
// spec document, e.g. "queries[2].template".
type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the list is error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
