package service

import (
	"context"

	"yieldhub/internal/config"
	"yieldhub/internal/models"
	"yieldhub/internal/repository"
)

// DefaultServiceConfigs are seeded on first boot; after that the DB rows are
// authoritative so admin edits survive restarts.
func DefaultServiceConfigs(cfg config.SyncConfig) []models.ServiceConfig {
	return []models.ServiceConfig{
		{Name: JobDefiLlamaSync, IntervalMinutes: cfg.DefiLlamaIntervalMinutes, Enabled: true, Description: "DefiLlama yields ingestion"},
		{Name: JobMorphoSync, IntervalMinutes: cfg.MorphoIntervalMinutes, Enabled: true, Description: "Morpho vault ingestion"},
		{Name: JobLidoSync, IntervalMinutes: cfg.LidoIntervalMinutes, Enabled: true, Description: "Lido stETH APR ingestion"},
		{Name: JobHolderSync, IntervalMinutes: cfg.HolderIntervalMinutes, Enabled: true, Description: "Top holder snapshot refresh"},
		{Name: JobOutlookRefresh, IntervalMinutes: cfg.OutlookIntervalMinutes, Enabled: true, Description: "Pool outlook regeneration"},
	}
}

// EnsureServiceConfigs inserts any missing job rows without touching ones an
// operator already tuned.
func EnsureServiceConfigs(ctx context.Context, repo repository.Repository, defaults []models.ServiceConfig) ([]models.ServiceConfig, error) {
	out := make([]models.ServiceConfig, 0, len(defaults))
	for _, def := range defaults {
		existing, err := repo.GetServiceConfig(ctx, def.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			out = append(out, *existing)
			continue
		}
		if def.IntervalMinutes <= 0 {
			def.IntervalMinutes = 30
		}
		row := def
		if err := repo.SaveServiceConfig(ctx, &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
