package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pcbuilder/gpumarket/internal/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export current prices and price stats to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		prices, err := st.CurrentPrices(ctx)
		if err != nil {
			return err
		}
		stats, err := st.PriceStats(ctx)
		if err != nil {
			return err
		}

		if err := report.WritePriceWorkbook(exportOut, prices, stats); err != nil {
			return err
		}
		zap.L().Info("price report written",
			zap.String("path", exportOut),
			zap.Int("current_prices", len(prices)),
			zap.Int("variants", len(stats)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "prices.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
