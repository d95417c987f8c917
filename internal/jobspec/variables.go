package jobspec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Implicit variable names always available to templates.
const (
	ImplicitJobName   = "job_name"
	ImplicitQueryName = "query_name"
)

// ResolveVariables merges, in increasing precedence, the implicit variables
// (job name, query name), the job-level defaults, and the query-level
// variables. A key at a higher level fully replaces the lower one; there is
// no deep merge. The function is pure and never fails — whether the template
// actually needs a given variable is the renderer's concern.
func ResolveVariables(job *JobSpec, query *QuerySpec) ResolvedVariables {
	resolved := ResolvedVariables{
		ImplicitJobName:   job.JobName,
		ImplicitQueryName: query.Name,
	}
	for key, value := range job.Defaults {
		if s, ok := scalarString(value); ok {
			resolved[key] = s
		}
	}
	for key, value := range query.Variables {
		if s, ok := scalarString(value); ok {
			resolved[key] = s
		}
	}
	return resolved
}

// scalarString renders a YAML scalar deterministically. Non-scalar values
// (maps, sequences) are rejected; Validate reports them before rendering
// ever sees them.
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		// 'f' with precision -1 renders whole floats without a decimal
		// point, so YAML `3.0` and `3` substitute identically.
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

func normalizeDisposition(d string) string {
	return strings.ToUpper(strings.TrimSpace(d))
}

// String renders the variable set as sorted key=value pairs. Useful in logs
// and history records.
func (v ResolvedVariables) String() string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%s", k, v[k])
	}
	return b.String()
}
