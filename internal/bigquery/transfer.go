package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	datatransfer "google.golang.org/api/bigquerydatatransfer/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bqflow/internal/pipeline"
)

// scheduledQueryDataSource is the transfer service data source backing
// BigQuery scheduled queries.
const scheduledQueryDataSource = "scheduled_query"

// transferUpdateMask names the fields patched on an existing config.
const transferUpdateMask = "params,schedule,display_name"

// DeployedConfig records the outcome for one query's transfer config.
type DeployedConfig struct {
	Query   string `json:"query"`
	Name    string `json:"transfer_config"`
	Created bool   `json:"created"`
}

// Deployer creates or updates scheduled-query transfer configs.
type Deployer struct {
	svc     *datatransfer.Service
	project string
	logger  *slog.Logger
}

// NewDeployer constructs a Deployer for the given project.
func NewDeployer(ctx context.Context, project string, logger *slog.Logger, opts ...option.ClientOption) (*Deployer, error) {
	if project == "" {
		return nil, fmt.Errorf("datatransfer: project is required")
	}
	svc, err := datatransfer.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("datatransfer: create service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{svc: svc, project: project, logger: logger}, nil
}

// Deploy creates or updates one transfer config per rendered query. The
// config is matched against existing ones by display name, destination
// dataset, and data source; a match is patched in place so re-deploying a
// job is idempotent. A schedule is mandatory here — it is the only
// operation that needs one.
func (d *Deployer) Deploy(ctx context.Context, job *pipeline.ResolvedJob, location string) ([]DeployedConfig, error) {
	if job.Schedule == "" {
		return nil, fmt.Errorf("deploy: job %q has no schedule", job.JobName)
	}
	if location == "" {
		location = "US"
	}
	parent := fmt.Sprintf("projects/%s/locations/%s", d.project, location)

	existing, err := d.listScheduledQueries(ctx, parent)
	if err != nil {
		return nil, err
	}

	deployed := make([]DeployedConfig, 0, len(job.Queries))
	for _, q := range job.Queries {
		cfg, err := buildTransferConfig(job, q)
		if err != nil {
			return nil, err
		}

		match := findConfig(existing, cfg.DisplayName, cfg.DestinationDatasetId)
		if match == nil {
			created, err := d.svc.Projects.Locations.TransferConfigs.Create(parent, cfg).Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("create transfer config for query %q: %w", q.Name, err)
			}
			d.logger.Info("created scheduled query", "query", q.Name, "config", created.Name)
			deployed = append(deployed, DeployedConfig{Query: q.Name, Name: created.Name, Created: true})
			continue
		}

		updated, err := d.svc.Projects.Locations.TransferConfigs.Patch(match.Name, cfg).
			UpdateMask(transferUpdateMask).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("update transfer config for query %q: %w", q.Name, err)
		}
		d.logger.Info("updated scheduled query", "query", q.Name, "config", updated.Name)
		deployed = append(deployed, DeployedConfig{Query: q.Name, Name: updated.Name})
	}

	return deployed, nil
}

// listScheduledQueries fetches all scheduled-query configs under parent.
func (d *Deployer) listScheduledQueries(ctx context.Context, parent string) ([]*datatransfer.TransferConfig, error) {
	var configs []*datatransfer.TransferConfig
	call := d.svc.Projects.Locations.TransferConfigs.List(parent).DataSourceIds(scheduledQueryDataSource)
	err := call.Pages(ctx, func(page *datatransfer.ListTransferConfigsResponse) error {
		configs = append(configs, page.TransferConfigs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transfer configs: %w", err)
	}
	return configs, nil
}

func findConfig(configs []*datatransfer.TransferConfig, displayName, dataset string) *datatransfer.TransferConfig {
	for _, cfg := range configs {
		if cfg.DisplayName == displayName &&
			cfg.DestinationDatasetId == dataset &&
			cfg.DataSourceId == scheduledQueryDataSource {
			return cfg
		}
	}
	return nil
}

// buildTransferConfig assembles the scheduled_query config for one query.
// Display names are job.query scoped so multi-query jobs deploy one config
// each without colliding.
func buildTransferConfig(job *pipeline.ResolvedJob, q pipeline.RenderedQuery) (*datatransfer.TransferConfig, error) {
	params, err := json.Marshal(map[string]string{
		"query":                           q.SQL,
		"destination_table_name_template": q.Destination.Table,
		"write_disposition":               q.WriteDisposition,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transfer params: %w", err)
	}

	return &datatransfer.TransferConfig{
		DisplayName:          job.JobName + "." + q.Name,
		DataSourceId:         scheduledQueryDataSource,
		DestinationDatasetId: q.Destination.Dataset,
		Schedule:             job.Schedule,
		Params:               googleapi.RawMessage(params),
	}, nil
}
