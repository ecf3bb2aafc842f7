package cmd

import (
	"context"
	"fmt"

	"github.com/mezonai/starledger/block"
	"github.com/spf13/cobra"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Append numbered free-text test blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedCount <= 0 {
			return fmt.Errorf("count must be positive")
		}
		ctx := context.Background()
		ld, bs, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer bs.Close()

		for i := 1; i <= seedCount; i++ {
			b, err := ld.Append(ctx, block.FreeText(fmt.Sprintf("Test Block - %d", i)))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Block#%d %s\n", b.Height, b.Hash)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 5, "number of blocks to append")
	addStoreFlags(seedCmd)
}
