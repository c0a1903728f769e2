package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crytic/siren/cmd/exitcodes"
	"github.com/crytic/siren/fuzzing"
	"github.com/crytic/siren/fuzzing/config"
	"github.com/crytic/siren/logging"
	"github.com/crytic/siren/logging/colors"
)

// fuzzCmd represents the command provider for fuzzing
var fuzzCmd = &cobra.Command{
	Use:               "fuzz",
	Short:             "Starts a fuzzing campaign",
	Long:              `Starts a fuzzing campaign`,
	Args:              cmdValidateFuzzArgs,
	ValidArgsFunction: cmdValidFuzzArgs,
	RunE:              cmdRunFuzz,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	addFuzzFlags()
	rootCmd.AddCommand(fuzzCmd)
}

// cmdValidFuzzArgs will return which flags and sub-commands are valid for dynamic completion for the fuzz command
func cmdValidFuzzArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateFuzzArgs makes sure that there are no positional arguments provided to the fuzz command
func cmdValidateFuzzArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("fuzz does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the fuzz command", err)
		return err
	}
	return nil
}

// cmdRunFuzz executes the CLI fuzz command and navigates through the following possibilities:
// #1: We will search for either a custom config file (via --config) or the default (siren.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If siren.json can't be found, use the default project configuration.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	var projectConfig *config.ProjectConfig

	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// If --config was not used, look for `siren.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the fuzz command", err)
			return err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err = config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			cmdLogger.Error("Failed to run the fuzz command", err)
			return err
		}
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed && existenceError != nil {
		cmdLogger.Error("Failed to run the fuzz command", existenceError)
		return existenceError
	}

	// Possibility #3: --config flag was not used and siren.json was not found, so use the default project config
	if !configFlagUsed && existenceError != nil {
		cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration instead", configPath))
		projectConfig = config.GetDefaultProjectConfig()
	}

	// Update the project configuration given whatever flags were set using the CLI
	if err = updateProjectConfigWithFuzzFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	// Contract paths in the configuration are relative to the configuration file.
	if err = os.Chdir(filepath.Dir(configPath)); err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	if err = setupGlobalLogger(projectConfig.Logging); err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return err
	}

	fuzzer, fuzzErr := fuzzing.NewFuzzer(*projectConfig)
	if fuzzErr != nil {
		cmdLogger.Error("Failed to create the fuzzer", fuzzErr)
		return exitcodes.NewErrorWithExitCode(fuzzErr, exitcodes.ExitCodeHandledError)
	}

	// Stop our fuzzing on keyboard interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		fuzzer.Stop()
	}()

	if fuzzErr = fuzzer.Start(); fuzzErr != nil {
		return exitcodes.NewErrorWithExitCode(fuzzErr, exitcodes.ExitCodeHandledError)
	}

	// A falsified check is a session outcome, not an error, but it gets its own exit code.
	if fuzzer.Falsification() != nil {
		return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeTestFailed)
	}

	return nil
}

// setupGlobalLogger builds the process logger from the logging configuration: colored console output, plus an
// unstructured log file when a log directory is configured.
func setupGlobalLogger(loggingConfig config.LoggingConfig) error {
	level, err := zerolog.ParseLevel(loggingConfig.Level)
	if err != nil {
		return err
	}
	if loggingConfig.NoColor {
		colors.DisableColors()
	}
	logging.GlobalLogger = logging.NewLogger(level, true)

	if loggingConfig.LogDirectory != "" {
		if err = os.MkdirAll(loggingConfig.LogDirectory, 0755); err != nil {
			return err
		}
		file, err := os.OpenFile(filepath.Join(loggingConfig.LogDirectory, "siren.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		logging.GlobalLogger.AddWriter(file, logging.UNSTRUCTURED)
	}
	return nil
}
