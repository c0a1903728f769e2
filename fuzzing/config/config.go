// Package config defines the JSON project configuration driving a fuzzing session.
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Fuzzing modes.
const (
	// ModeInvariant checks declared invariant functions after every state-changing call.
	ModeInvariant = "invariant"
	// ModeTest runs self-contained property test functions.
	ModeTest = "test"
)

// ProjectConfig is the top-level configuration for one project.
type ProjectConfig struct {
	// Fuzzing configures the fuzzing session.
	Fuzzing FuzzingConfig `json:"fuzzing"`

	// Logging configures log output.
	Logging LoggingConfig `json:"logging"`
}

// FuzzingConfig configures target selection and the trial loop.
type FuzzingConfig struct {
	// ContractsDirectory is where contract sources and their paired test sources live.
	ContractsDirectory string `json:"contractsDirectory"`

	// TargetContract is the name of the contract under test.
	TargetContract string `json:"targetContract"`

	// Mode selects invariant or property-test fuzzing.
	Mode string `json:"mode"`

	// Seed seeds the random engine. Zero means derive a seed from the clock.
	Seed int64 `json:"seed"`

	// Runs is the trial budget for one session.
	Runs int `json:"runs"`

	// BailOnFailure stops the session at the first falsification instead of exhausting the trial budget.
	BailOnFailure bool `json:"bailOnFailure"`

	// BlockHeightBudget bounds total chain height growth across a session; each trial's block-advance draw is
	// capped at ceil(budget/runs).
	BlockHeightBudget uint64 `json:"blockHeightBudget"`

	// Accounts is how many funded test accounts the embedded chain derives.
	Accounts int `json:"accounts"`

	// DeploymentPlanPath names an optional deployment plan applied to the chain before the contract under test
	// deploys, for requirement contracts and trait implementations. Source paths in the plan resolve relative to
	// the plan file.
	DeploymentPlanPath string `json:"deploymentPlanPath"`

	// RegressionsPath is the regression database location. Empty disables persistence.
	RegressionsPath string `json:"regressionsPath"`

	// RegressionLimit bounds retained regression records per contract and mode. Zero applies the store default.
	RegressionLimit int `json:"regressionLimit"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is a zerolog level string.
	Level string `json:"level"`

	// LogDirectory receives an unstructured log file when non-empty.
	LogDirectory string `json:"logDirectory"`

	// NoColor disables ANSI coloring on console output.
	NoColor bool `json:"noColor"`
}

// GetDefaultProjectConfig returns the configuration `siren init` writes.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Fuzzing: FuzzingConfig{
			ContractsDirectory: "contracts",
			Mode:               ModeInvariant,
			Runs:               100,
			BlockHeightBudget:  100000,
			Accounts:           10,
			RegressionsPath:    "siren-regressions.db",
		},
		Logging: LoggingConfig{
			Level: zerolog.LevelInfoValue,
		},
	}
}

// ReadProjectConfigFromFile loads and validates a project configuration.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read project configuration")
	}

	// Unknown keys are configuration mistakes, not data to ignore.
	projectConfig := GetDefaultProjectConfig()
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(projectConfig); err != nil {
		return nil, errors.Wrap(err, "could not parse project configuration")
	}

	if err = projectConfig.Validate(); err != nil {
		return nil, err
	}
	return projectConfig, nil
}

// WriteToFile writes the configuration as indented JSON.
func (p *ProjectConfig) WriteToFile(path string) error {
	data, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.Wrap(err, "could not serialize project configuration")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "could not write project configuration")
}

// Validate checks the configuration is runnable.
func (p *ProjectConfig) Validate() error {
	if p.Fuzzing.Mode != ModeInvariant && p.Fuzzing.Mode != ModeTest {
		return errors.Errorf("fuzzing mode must be '%s' or '%s', got '%s'", ModeInvariant, ModeTest, p.Fuzzing.Mode)
	}
	if p.Fuzzing.TargetContract == "" {
		return errors.New("a target contract must be configured")
	}
	if p.Fuzzing.Runs <= 0 {
		return errors.New("the trial budget must be positive")
	}
	if p.Fuzzing.BlockHeightBudget == 0 {
		return errors.New("the block height budget must be positive")
	}
	if p.Fuzzing.Accounts <= 0 {
		return errors.New("at least one test account is required")
	}
	if p.Fuzzing.RegressionLimit < 0 {
		return errors.New("the regression record limit cannot be negative")
	}
	if _, err := zerolog.ParseLevel(p.Logging.Level); err != nil {
		return errors.Wrapf(err, "invalid log level '%s'", p.Logging.Level)
	}
	return nil
}
