package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfigValidatesWithTarget checks the default configuration only needs a target to be runnable.
func TestDefaultConfigValidatesWithTarget(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	require.Error(t, projectConfig.Validate())

	projectConfig.Fuzzing.TargetContract = "counter"
	require.NoError(t, projectConfig.Validate())
}

// TestReadWriteRoundTrip checks a written configuration reads back identically.
func TestReadWriteRoundTrip(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	projectConfig.Fuzzing.TargetContract = "counter"
	projectConfig.Fuzzing.Mode = ModeTest
	projectConfig.Fuzzing.Seed = 12345

	path := filepath.Join(t.TempDir(), "siren.json")
	require.NoError(t, projectConfig.WriteToFile(path))

	loaded, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, projectConfig, loaded)
}

// TestReadRejectsUnknownKeys checks configuration typos fail loudly instead of being ignored.
func TestReadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siren.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fuzzing": {"targetContrcat": "counter"}}`), 0644))

	_, err := ReadProjectConfigFromFile(path)
	require.Error(t, err)
}

// TestValidateRejectsBadValues table-checks the validation rules.
func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProjectConfig)
	}{
		{"unknown mode", func(c *ProjectConfig) { c.Fuzzing.Mode = "chaos" }},
		{"zero runs", func(c *ProjectConfig) { c.Fuzzing.Runs = 0 }},
		{"zero height budget", func(c *ProjectConfig) { c.Fuzzing.BlockHeightBudget = 0 }},
		{"no accounts", func(c *ProjectConfig) { c.Fuzzing.Accounts = 0 }},
		{"negative regression limit", func(c *ProjectConfig) { c.Fuzzing.RegressionLimit = -1 }},
		{"bad log level", func(c *ProjectConfig) { c.Logging.Level = "loud" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			projectConfig := GetDefaultProjectConfig()
			projectConfig.Fuzzing.TargetContract = "counter"
			test.mutate(projectConfig)
			assert.Error(t, projectConfig.Validate())
		})
	}
}
