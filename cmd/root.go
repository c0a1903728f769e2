package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/crytic/siren/logging"
)

var rootCmd = &cobra.Command{
	Use:   "siren",
	Short: "A Clarity smart contract fuzzing harness",
	Long:  "siren is a property-based and invariant fuzzing harness for Clarity smart contracts",
}

// cmdLogger logs command-layer messages; the fuzzing session configures its own logger from the project
// configuration.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel, true)

func Execute() error {
	return rootCmd.Execute()
}
