package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mezonai/starledger/jsonx"
	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block <height>",
	Short: "Print the block stored at height",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		height, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid height %q: %w", args[0], err)
		}

		ctx := context.Background()
		ld, bs, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer bs.Close()

		b, err := ld.GetByHeight(ctx, height)
		if err != nil {
			return err
		}
		out, err := jsonx.MarshalIndent(b, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blockCmd)
	addStoreFlags(blockCmd)
}
