package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crytic/siren/fuzzing/config"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() {
	initCmd.Flags().SortFlags = false

	// Output path for the configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Target contract
	initCmd.Flags().String("target", "", "name of the contract under test")

	// Contracts directory
	initCmd.Flags().String("contracts-dir", "", "directory holding contract sources and their paired test sources")
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided
// to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	if cmd.Flags().Changed("target") {
		projectConfig.Fuzzing.TargetContract, err = cmd.Flags().GetString("target")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("contracts-dir") {
		projectConfig.Fuzzing.ContractsDirectory, err = cmd.Flags().GetString("contracts-dir")
		if err != nil {
			return err
		}
	}
	return nil
}
