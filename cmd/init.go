package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crytic/siren/fuzzing/config"
	"github.com/crytic/siren/logging/colors"
)

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:           "init",
	Short:         "Initializes a project configuration",
	Long:          `Initializes a project configuration`,
	Args:          cobra.NoArgs,
	RunE:          cmdRunInit,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addInitFlags()
	rootCmd.AddCommand(initCmd)
}

// cmdRunInit executes the init CLI command and updates the project configuration with any flags
func cmdRunInit(cmd *cobra.Command, args []string) error {
	outputFlagUsed := cmd.Flags().Changed("out")
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	// If we weren't provided an output path (flag was not used), we use our working directory
	if !outputFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		outputPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	projectConfig := config.GetDefaultProjectConfig()
	if err = updateProjectConfigWithInitFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	if _, err = os.Stat(outputPath); err == nil {
		// Prompt user for overwrite confirmation
		fmt.Print("The file already exists. Overwrite? (y/n): ")
		var response string
		if _, err := fmt.Scan(&response); err != nil {
			cmdLogger.Error("Failed to scan input", err)
			return err
		}
		if response != "y" && response != "Y" {
			fmt.Println("Operation canceled.")
			return nil
		}
	}

	if err = projectConfig.WriteToFile(outputPath); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}
