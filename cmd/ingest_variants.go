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
	variantsHypothesesDir string
	variantsDryRun        bool
	variantsLimit         int
)

var ingestVariantsCmd = &cobra.Command{
	Use:   "ingest-variants",
	Short: "Resolve hypothesis files against the chip catalog and insert variants",
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

		dir := variantsHypothesesDir
		if dir == "" {
			dir = cfg.Data.HypothesesDir
		}

		ing := ingest.NewVariantIngestor(st, idx)
		ing.DryRun = variantsDryRun
		ing.Limit = variantsLimit

		started := time.Now().UTC()
		report, err := ing.Run(ctx, dir)
		if err != nil {
			return err
		}

		zap.L().Info("variant ingestion summary",
			zap.Bool("dry_run", variantsDryRun),
			zap.Any("counters", report.Map()))

		if !variantsDryRun {
			if err := st.RecordIngestRun(ctx, &model.IngestRun{
				ID:         uuid.New().String(),
				Kind:       "variants",
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
	ingestVariantsCmd.Flags().StringVar(&variantsHypothesesDir, "hypotheses-dir", "", "hypothesis JSON directory (default from config)")
	ingestVariantsCmd.Flags().BoolVar(&variantsDryRun, "dry-run", false, "report planned inserts without writing")
	ingestVariantsCmd.Flags().IntVar(&variantsLimit, "limit", 0, "process only the first N hypothesis files")
	rootCmd.AddCommand(ingestVariantsCmd)
}
