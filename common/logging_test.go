package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{JSON: true, Service: "upload", Version: "v1", Output: &buf})

	log.Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "upload", record["service"])
	assert.Equal(t, "v1", record["version"])
}

func TestSetupLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{Output: &buf})
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log = SetupLogger(&LoggingOpts{Debug: true, Output: &buf})
	log.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
