package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/conductor/pkg/dsl"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check workflow definition files for consistency",
	Long:  `Parses each YAML definition file and reports states referenced by transitions that are not declared, missing initial states, and duplicate transition names.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All definitions are valid.")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(paths []string) error {
	for _, path := range paths {
		defs, err := dsl.LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, def := range defs {
			fmt.Printf("%s: %s@%s ok (%d states, %d transitions)\n",
				path, def.Name, def.Version, len(def.States), len(def.Transitions))
		}
	}
	return nil
}
