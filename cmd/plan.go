package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/logging/colors"
	"github.com/crytic/siren/project"
)

// planCmd represents the command provider for plan
var planCmd = &cobra.Command{
	Use:           "plan",
	Short:         "Generates a simnet deployment plan from a project manifest",
	Long:          `Generates a simnet deployment plan from a project manifest`,
	Args:          cobra.NoArgs,
	RunE:          cmdRunPlan,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addPlanFlags()
	rootCmd.AddCommand(planCmd)
}

// cmdRunPlan executes the plan CLI command: it loads the manifest, derives an epoch-ordered deployment plan from
// it, and writes the plan next to the manifest unless an output path is given.
func cmdRunPlan(cmd *cobra.Command, args []string) error {
	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		cmdLogger.Error("Failed to run the plan command", err)
		return err
	}

	sender, err := cmd.Flags().GetString("sender")
	if err != nil {
		cmdLogger.Error("Failed to run the plan command", err)
		return err
	}
	if sender == "" {
		// The first derived wallet publishes by default, matching the fuzzer's deployer account.
		sender = chain.DeriveAccountAddress("wallet_1")
	}

	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the plan command", err)
		return err
	}
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(manifestPath), DefaultDeploymentPlanFilename)
	}

	manifest, err := project.LoadManifest(manifestPath)
	if err != nil {
		cmdLogger.Error("Failed to run the plan command", err)
		return err
	}

	plan := project.GeneratePlan(manifest, sender)
	encoded, err := yaml.Marshal(plan)
	if err != nil {
		cmdLogger.Error("Failed to run the plan command", err)
		return err
	}
	if err = os.WriteFile(outputPath, encoded, 0644); err != nil {
		cmdLogger.Error("Failed to run the plan command", err)
		return err
	}

	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Deployment plan successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}
