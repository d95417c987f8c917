// Package bigquery wraps the BigQuery and Data Transfer APIs behind the
// narrow surfaces the pipeline needs: dry-run cost estimation and
// scheduled-query deployment.
package bigquery

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	"bqflow/internal/pipeline"
)

// defaultAPIRate caps outbound API calls; dry-runs across a large job fan
// out concurrently and the jobs.insert quota is per-project.
const defaultAPIRate = rate.Limit(5)

// DryRunResult summarizes one query's dry-run statistics.
type DryRunResult struct {
	Query               string `json:"query"`
	TotalBytesProcessed int64  `json:"total_bytes_processed"`
	TotalSlotMillis     int64  `json:"total_slot_millis"`
	CacheHit            bool   `json:"cache_hit"`
}

// Client issues dry-run jobs against the BigQuery API.
type Client struct {
	svc     *bq.Service
	project string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient constructs a dry-run client for the given project. Extra
// options are passed through to the API client, which lets tests point at
// a local server without credentials.
func NewClient(ctx context.Context, project string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if project == "" {
		return nil, fmt.Errorf("bigquery: project is required")
	}
	svc, err := bq.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: create service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:     svc,
		project: project,
		limiter: rate.NewLimiter(defaultAPIRate, 1),
		logger:  logger,
	}, nil
}

// DryRun submits a single dry-run job and returns its statistics. The job
// is never executed; maxBytesBilled (when > 0) is forwarded so the service
// applies the same cap a real run would, and an estimate above the cap
// fails here instead of at schedule time.
func (c *Client) DryRun(ctx context.Context, queryName, sql string, maxBytesBilled int64, labels map[string]string) (DryRunResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return DryRunResult{}, err
	}

	useLegacySQL := false
	useCache := false
	job := &bq.Job{
		Configuration: &bq.JobConfiguration{
			DryRun: true,
			Labels: labels,
			Query: &bq.JobConfigurationQuery{
				Query:         sql,
				UseLegacySql:  &useLegacySQL,
				UseQueryCache: &useCache,
			},
		},
	}
	if maxBytesBilled > 0 {
		job.Configuration.Query.MaximumBytesBilled = maxBytesBilled
	}

	c.logger.Info("starting dry-run", "query", queryName, "project", c.project)
	inserted, err := c.svc.Jobs.Insert(c.project, job).Context(ctx).Do()
	if err != nil {
		return DryRunResult{}, fmt.Errorf("dry-run %q: %w", queryName, err)
	}

	result := DryRunResult{Query: queryName}
	if stats := inserted.Statistics; stats != nil {
		result.TotalBytesProcessed = stats.TotalBytesProcessed
		result.TotalSlotMillis = stats.TotalSlotMs
		if stats.Query != nil {
			result.CacheHit = stats.Query.CacheHit
		}
	}

	if maxBytesBilled > 0 && result.TotalBytesProcessed > maxBytesBilled {
		return result, fmt.Errorf("dry-run %q: estimated %d bytes exceeds max_bytes_billed=%d",
			queryName, result.TotalBytesProcessed, maxBytesBilled)
	}

	c.logger.Info("dry-run complete",
		"query", queryName,
		"estimated_bytes", result.TotalBytesProcessed,
		"slot_ms", result.TotalSlotMillis,
	)
	return result, nil
}

// DryRunJob dry-runs every rendered query in the job. Queries are
// independent, so the calls fan out concurrently; results come back in
// spec order. The first failure cancels the rest.
func (c *Client) DryRunJob(ctx context.Context, job *pipeline.ResolvedJob) ([]DryRunResult, error) {
	results := make([]DryRunResult, len(job.Queries))

	g, ctx := errgroup.WithContext(ctx)
	for i, q := range job.Queries {
		g.Go(func() error {
			res, err := c.DryRun(ctx, q.Name, q.SQL, job.MaxBytesBilled, job.Labels)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
