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
	obsMarketplaceDir string
	obsIndexDir       string
	obsDryRun         bool
	obsLimit          int
)

var ingestObservationsCmd = &cobra.Command{
	Use:   "ingest-observations",
	Short: "Attribute marketplace price records to variants and insert observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		idx, err := loadCatalogIndex(ctx, st)
		if err != nil {
			return err
		}

		marketplaceDir := obsMarketplaceDir
		if marketplaceDir == "" {
			marketplaceDir = cfg.Data.MarketplaceDir
		}
		indexDir := obsIndexDir
		if indexDir == "" {
			indexDir = cfg.Data.IndexDir
		}

		ing := ingest.NewObservationIngestor(st, idx, cfg.Data.BronzeRoot)
		ing.DryRun = obsDryRun
		ing.Limit = obsLimit

		started := time.Now().UTC()
		report, err := ing.Run(ctx, marketplaceDir, indexDir)
		if err != nil {
			return err
		}

		zap.L().Info("observation ingestion summary",
			zap.Bool("dry_run", obsDryRun),
			zap.Any("counters", report.Map()))

		if !obsDryRun {
			if err := st.RecordIngestRun(ctx, &model.IngestRun{
				ID:         uuid.New().String(),
				Kind:       "observations",
				DryRun:     false,
				Counters:   report.Map(),
				StartedAt:  started,
				FinishedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return report.Err()
	},
}

func init() {
	ingestObservationsCmd.Flags().StringVar(&obsMarketplaceDir, "marketplace-dir", "", "marketplace JSON directory (default from config)")
	ingestObservationsCmd.Flags().StringVar(&obsIndexDir, "index-dir", "", "observed_product index directory (default from config)")
	ingestObservationsCmd.Flags().BoolVar(&obsDryRun, "dry-run", false, "report planned inserts without writing")
	ingestObservationsCmd.Flags().IntVar(&obsLimit, "limit", 0, "process only the first N marketplace records")
	rootCmd.AddCommand(ingestObservationsCmd)
}
