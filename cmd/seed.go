package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pcbuilder/gpumarket/internal/catalog"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the canonical chip catalog from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		chips, err := catalog.LoadSeed(seedFile)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.SeedChips(ctx, chips)
		if err != nil {
			return err
		}
		zap.L().Info("catalog seeded",
			zap.String("file", seedFile),
			zap.Int("chips", n))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "seeds/chips.yaml", "chip catalog YAML file")
	rootCmd.AddCommand(seedCmd)
}
