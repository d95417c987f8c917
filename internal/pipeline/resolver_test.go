package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bqflow/internal/jobspec"
	"bqflow/internal/render"
)

// fixture lays out a spec file and a templates root in temp dirs.
type fixture struct {
	specPath      string
	templatesRoot string
}

func newFixture(t *testing.T, specYAML string, templates map[string]string) fixture {
	t.Helper()
	specPath := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(specYAML), 0o644))

	root := t.TempDir()
	for name, content := range templates {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return fixture{specPath: specPath, templatesRoot: root}
}

const salesSyncYAML = `
job_name: sales_sync
schedule: "0 6 * * *"
destination:
  dataset: analytics
  table: daily_totals
defaults:
  region: US
labels:
  owner: data-team
  domain: sales
  environment: prod
queries:
  - name: daily_totals
    template: daily_totals.sql
`

func TestResolve_EndToEnd(t *testing.T) {
	f := newFixture(t, salesSyncYAML, map[string]string{
		"daily_totals.sql": "SELECT {{ region }} FROM sales\n",
	})

	job, err := NewResolver(nil).Resolve(f.specPath, f.templatesRoot)
	require.NoError(t, err)

	assert.Equal(t, "sales_sync", job.JobName)
	assert.Equal(t, "0 6 * * *", job.Schedule)
	require.Len(t, job.Queries, 1)

	q := job.Queries[0]
	assert.Equal(t, "daily_totals", q.Name)
	assert.Equal(t, "SELECT US FROM sales", q.SQL)
	assert.Equal(t, "analytics.daily_totals", q.Destination.String())
	assert.Equal(t, jobspec.WriteTruncate, q.WriteDisposition)
	assert.Equal(t, "US", q.Variables["region"], "exact variable set retained for audit")
	assert.Empty(t, job.Warnings)
}

func TestResolve_Idempotent(t *testing.T) {
	f := newFixture(t, salesSyncYAML, map[string]string{
		"daily_totals.sql": "SELECT {{ region }}, {{ job_name }} FROM sales\n",
	})
	r := NewResolver(nil)

	first, err := r.Resolve(f.specPath, f.templatesRoot)
	require.NoError(t, err)
	second, err := r.Resolve(f.specPath, f.templatesRoot)
	require.NoError(t, err)

	assert.Equal(t, first.Queries[0].SQL, second.Queries[0].SQL)
}

func TestResolve_QueryOverridesDefault(t *testing.T) {
	spec := salesSyncYAML + `    variables:
      region: EU
`
	f := newFixture(t, spec, map[string]string{
		"daily_totals.sql": "SELECT {{ region }} FROM sales",
	})

	job, err := NewResolver(nil).Resolve(f.specPath, f.templatesRoot)
	require.NoError(t, err)
	assert.Equal(t, "SELECT EU FROM sales", job.Queries[0].SQL)
}

func TestResolve_ValidationErrorsAreFatal(t *testing.T) {
	f := newFixture(t, salesSyncYAML, nil) // template missing

	_, err := NewResolver(nil).Resolve(f.specPath, f.templatesRoot)

	var verr *jobspec.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "queries[0].template", verr.Issues[0].Path)
}

func TestResolve_WarningsDoNotBlock(t *testing.T) {
	spec := `
job_name: sales_sync
destination:
  dataset: analytics
  table: daily_totals
queries:
  - name: daily_totals
    template: daily_totals.sql
`
	f := newFixture(t, spec, map[string]string{
		"daily_totals.sql": "SELECT 1",
	})

	job, err := NewResolver(nil).Resolve(f.specPath, f.templatesRoot)
	require.NoError(t, err)
	assert.Len(t, job.Warnings, 3, "missing recommended labels surface as warnings")
}

func TestResolve_UndeclaredVariable(t *testing.T) {
	f := newFixture(t, salesSyncYAML, map[string]string{
		"daily_totals.sql": "SELECT * WHERE d = {{ run_date }}",
	})

	_, err := NewResolver(nil).Resolve(f.specPath, f.templatesRoot)

	var undeclared *render.UndeclaredVariableError
	require.ErrorAs(t, err, &undeclared)
	assert.Equal(t, "run_date", undeclared.Variable)
	assert.Equal(t, "daily_totals", undeclared.QueryName)
}

func TestResolve_MultiQueryOrderPreserved(t *testing.T) {
	spec := `
job_name: multi
destination:
  dataset: analytics
  table: out
labels:
  owner: o
  domain: d
  environment: prod
queries:
  - name: first
    template: a.sql
  - name: second
    template: b.sql
    write_disposition: WRITE_APPEND
    destination:
      dataset: staging
      table: second_out
`
	f := newFixture(t, spec, map[string]string{
		"a.sql": "SELECT 1",
		"b.sql": "SELECT 2",
	})

	job, err := NewResolver(nil).Resolve(f.specPath, f.templatesRoot)
	require.NoError(t, err)
	require.Len(t, job.Queries, 2)
	assert.Equal(t, "first", job.Queries[0].Name)
	assert.Equal(t, "second", job.Queries[1].Name)
	assert.Equal(t, "staging.second_out", job.Queries[1].Destination.String())
	assert.Equal(t, jobspec.WriteAppend, job.Queries[1].WriteDisposition)
}

func TestValidate_StopsBeforeRendering(t *testing.T) {
	// The validate entry point reports issues without touching templates
	// beyond existence checks.
	f := newFixture(t, salesSyncYAML, map[string]string{
		"daily_totals.sql": "SELECT {{ totally_undeclared }}",
	})

	spec, issues, err := NewResolver(nil).Validate(f.specPath, f.templatesRoot)
	require.NoError(t, err)
	assert.Equal(t, "sales_sync", spec.JobName)
	assert.Empty(t, issues, "undeclared variables are a render-time failure, not a validation issue")
}
