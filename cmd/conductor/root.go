package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Conductor is a workflow orchestration server",
	Long:  `Conductor runs data-driven finite-state workflows with guarded transitions, sagas with compensation, and event-driven dispatch.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file")
}
