package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var validateTimeout time.Duration

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every block hash and link, printing all violations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		ld, bs, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer bs.Close()

		violations, err := ld.ValidateChain(ctx)
		if err != nil {
			return err
		}
		if len(violations) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No errors detected")
			return nil
		}
		for _, v := range violations {
			fmt.Fprintln(cmd.OutOrStdout(), v.Error())
		}
		return fmt.Errorf("chain has %d violations: %w", len(violations), violations.Err())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", 10*time.Minute, "maximum time for the full scan")
	addStoreFlags(validateCmd)
}
