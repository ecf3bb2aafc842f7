package cmd

import (
	"os"

	"github.com/mezonai/starledger/logx"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "starledger",
	Short: "Star registry ledger node CLI",
	Long:  "Command line interface for running and inspecting a star registry hash-chain ledger.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.ini", "path to the ini tuning file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
