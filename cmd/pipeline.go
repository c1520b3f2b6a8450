package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pcbuilder/gpumarket/internal/ingest"
	"github.com/pcbuilder/gpumarket/internal/model"
)

var (
	pipelineDryRun bool
	pipelineLimit  int
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run variant ingestion followed by observation ingestion",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		idx, err := loadCatalogIndex(ctx, st)
		if err != nil {
			return err
		}

		variants := ingest.NewVariantIngestor(st, idx)
		variants.DryRun = pipelineDryRun
		variants.Limit = pipelineLimit

		started := time.Now().UTC()
		variantReport, err := variants.Run(ctx, cfg.Data.HypothesesDir)
		if err != nil {
			return err
		}
		zap.L().Info("variant step complete",
			zap.Duration("elapsed", time.Since(started)),
			zap.Any("counters", variantReport.Map()))

		// A step with read or parse failures aborts the pipeline before the
		// next step runs.
		if err := variantReport.Err(); err != nil {
			return err
		}

		observations := ingest.NewObservationIngestor(st, idx, cfg.Data.BronzeRoot)
		observations.DryRun = pipelineDryRun
		observations.Limit = pipelineLimit

		obsStarted := time.Now().UTC()
		obsReport, err := observations.Run(ctx, cfg.Data.MarketplaceDir, cfg.Data.IndexDir)
		if err != nil {
			return err
		}
		zap.L().Info("observation step complete",
			zap.Duration("elapsed", time.Since(obsStarted)),
			zap.Any("counters", obsReport.Map()))

		if !pipelineDryRun {
			counters := variantReport.Map()
			for k, v := range obsReport.Map() {
				counters[k] += v
			}
			if err := st.RecordIngestRun(ctx, &model.IngestRun{
				ID:         uuid.New().String(),
				Kind:       "pipeline",
				DryRun:     false,
				Counters:   counters,
				StartedAt:  started,
				FinishedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return obsReport.Err()
	},
}

func init() {
	pipelineCmd.Flags().BoolVar(&pipelineDryRun, "dry-run", false, "report planned inserts without writing")
	pipelineCmd.Flags().IntVar(&pipelineLimit, "limit", 0, "cap records per step")
	rootCmd.AddCommand(pipelineCmd)
}
