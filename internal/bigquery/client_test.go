package bigquery

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"bqflow/internal/pipeline"
)

// fakeBigQuery serves the jobs.insert endpoint, echoing statistics derived
// from the submitted query via the bytesFor callback.
func fakeBigQuery(t *testing.T, bytesFor func(sql string) int64) *httptest.Server {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/projects/test-project/jobs", r.URL.Path)

		var body struct {
			Configuration struct {
				DryRun bool `json:"dryRun"`
				Query  struct {
					Query string `json:"query"`
				} `json:"query"`
			} `json:"configuration"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Configuration.DryRun, "every submitted job must be a dry-run")

		// int64 fields are string-encoded on the wire.
		fmt.Fprintf(w, `{
			"statistics": {
				"totalBytesProcessed": "%d",
				"totalSlotMs": "5",
				"query": {"cacheHit": false}
			}
		}`, bytesFor(body.Configuration.Query.Query))
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(t.Context(), "test-project", nil,
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return client
}

func TestDryRun(t *testing.T) {
	srv := fakeBigQuery(t, func(string) int64 { return 1234 })
	client := newTestClient(t, srv)

	res, err := client.DryRun(t.Context(), "daily", "SELECT 1", 0, map[string]string{"owner": "data-team"})
	require.NoError(t, err)
	assert.Equal(t, "daily", res.Query)
	assert.Equal(t, int64(1234), res.TotalBytesProcessed)
	assert.Equal(t, int64(5), res.TotalSlotMillis)
	assert.False(t, res.CacheHit)
}

func TestDryRun_ExceedsMaxBytesBilled(t *testing.T) {
	srv := fakeBigQuery(t, func(string) int64 { return 1 << 30 })
	client := newTestClient(t, srv)

	_, err := client.DryRun(t.Context(), "daily", "SELECT 1", 1024, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max_bytes_billed")
}

func TestDryRun_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "syntax error"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv)

	_, err := client.DryRun(t.Context(), "daily", "SELEC 1", 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `dry-run "daily"`)
}

func TestDryRunJob_ResultsInSpecOrder(t *testing.T) {
	srv := fakeBigQuery(t, func(sql string) int64 {
		if sql == "SELECT 1" {
			return 100
		}
		return 200
	})
	client := newTestClient(t, srv)

	job := &pipeline.ResolvedJob{
		JobName: "multi",
		Queries: []pipeline.RenderedQuery{
			{Name: "first", SQL: "SELECT 1"},
			{Name: "second", SQL: "SELECT 2"},
		},
	}

	results, err := client.DryRunJob(t.Context(), job)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Query)
	assert.Equal(t, int64(100), results[0].TotalBytesProcessed)
	assert.Equal(t, "second", results[1].Query)
	assert.Equal(t, int64(200), results[1].TotalBytesProcessed)
}

func TestNewClient_RequiresProject(t *testing.T) {
	_, err := NewClient(t.Context(), "", nil)
	require.Error(t, err)
}
