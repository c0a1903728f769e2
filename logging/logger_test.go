package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStructuredWriterReceivesFields checks added writers get structured JSON with sub-logger context.
func TestStructuredWriterReceivesFields(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(zerolog.InfoLevel, false)
	logger.AddWriter(&buffer, STRUCTURED)

	sub := logger.NewSubLogger("module", "fuzzer")
	sub.Info("trial executed", StructuredLogInfo{"trial": 7})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	assert.Equal(t, "fuzzer", entry["module"])
	assert.Equal(t, "trial executed", entry["message"])
	assert.Equal(t, float64(7), entry["info"].(map[string]any)["trial"])
}

// TestLevelFiltersMessages checks messages below the configured level are dropped.
func TestLevelFiltersMessages(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(zerolog.WarnLevel, false)
	logger.AddWriter(&buffer, STRUCTURED)

	logger.Info("quiet")
	logger.Warn("loud")

	output := buffer.String()
	assert.NotContains(t, output, "quiet")
	assert.Contains(t, output, "loud")
}

// TestUnstructuredWriterStaysPlain checks UNSTRUCTURED writers receive console-style lines without JSON framing.
func TestUnstructuredWriterStaysPlain(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(zerolog.InfoLevel, false)
	logger.AddWriter(&buffer, UNSTRUCTURED)

	logger.Info("plain message")
	line := buffer.String()
	assert.Contains(t, line, "plain message")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(line), "{"))
}
