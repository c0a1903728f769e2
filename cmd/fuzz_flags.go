package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crytic/siren/fuzzing/config"
)

// addFuzzFlags adds the various flags for the fuzz command
func addFuzzFlags() {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	fuzzCmd.Flags().SortFlags = false

	// Config file
	fuzzCmd.Flags().String("config", "", "path to config file")

	// Target contract
	fuzzCmd.Flags().String("target", "", "name of the contract under test")

	// Contracts directory
	fuzzCmd.Flags().String("contracts-dir", "",
		fmt.Sprintf("directory holding contract sources and their paired test sources (unless a config file is provided, default is %q)", defaultConfig.Fuzzing.ContractsDirectory))

	// Fuzzing mode
	fuzzCmd.Flags().String("mode", "",
		fmt.Sprintf("fuzzing mode, %q or %q (unless a config file is provided, default is %q)", config.ModeInvariant, config.ModeTest, defaultConfig.Fuzzing.Mode))

	// Seed
	fuzzCmd.Flags().Int64("seed", 0,
		"seed for the random engine. 0 means a seed is derived from the clock")

	// Trial budget
	fuzzCmd.Flags().Int("runs", 0,
		fmt.Sprintf("number of trials to run before exiting (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Runs))

	// Bail on failure
	fuzzCmd.Flags().Bool("bail", false,
		"stop at the first falsification without shrinking the failing sequence")

	// Block height budget
	fuzzCmd.Flags().Uint64("block-height-budget", 0,
		fmt.Sprintf("bound on total chain height growth across the session (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.BlockHeightBudget))

	// Accounts
	fuzzCmd.Flags().Int("accounts", 0,
		fmt.Sprintf("number of funded test accounts to derive (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Accounts))

	// Deployment plan
	fuzzCmd.Flags().String("plan", "",
		"path of a deployment plan applied before the contract under test deploys")

	// Regression store
	fuzzCmd.Flags().String("regressions-path", "",
		fmt.Sprintf("path of the regression database, empty disables persistence (unless a config file is provided, default is %q)", defaultConfig.Fuzzing.RegressionsPath))

	// No color
	fuzzCmd.Flags().Bool("no-color", false, "disable colored console output")
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided
// to the fuzz command
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
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

	if cmd.Flags().Changed("mode") {
		projectConfig.Fuzzing.Mode, err = cmd.Flags().GetString("mode")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("seed") {
		projectConfig.Fuzzing.Seed, err = cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("runs") {
		projectConfig.Fuzzing.Runs, err = cmd.Flags().GetInt("runs")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("bail") {
		projectConfig.Fuzzing.BailOnFailure, err = cmd.Flags().GetBool("bail")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("block-height-budget") {
		projectConfig.Fuzzing.BlockHeightBudget, err = cmd.Flags().GetUint64("block-height-budget")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("accounts") {
		projectConfig.Fuzzing.Accounts, err = cmd.Flags().GetInt("accounts")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("plan") {
		projectConfig.Fuzzing.DeploymentPlanPath, err = cmd.Flags().GetString("plan")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("regressions-path") {
		projectConfig.Fuzzing.RegressionsPath, err = cmd.Flags().GetString("regressions-path")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}
	return nil
}
