package jobspec

import (
	"fmt"
	"strings"
)

// ParseError reports a document that could not be parsed as YAML. The
// wrapped yaml error carries the syntax location when available.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError reports a document that parsed but is missing a structural
// minimum (e.g. no queries key at all). Field-level problems are reported
// by Validate instead.
type ShapeError struct {
	Path    string
	Missing []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: missing required top-level keys: %s", e.Path, strings.Join(e.Missing, ", "))
}

// ValidationError is returned by the pipeline when a spec has one or more
// error-severity issues. It carries the full accumulated issue list.
type ValidationError struct {
	JobName string
	Issues  []Issue
}

func (e *ValidationError) Error() string {
	n := 0
	for _, i := range e.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return fmt.Sprintf("job spec %q has %d validation error(s)", e.JobName, n)
}
