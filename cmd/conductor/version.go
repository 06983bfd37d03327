package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/conductor"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of conductor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("conductor version %s\n", strings.TrimSpace(conductor.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
