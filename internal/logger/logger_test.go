package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	require.NoError(t, Setup("warn", "json", &buf))

	log.Info().Msg("hidden")
	log.Warn().Str("indicator", "dxy").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "dxy", entry["indicator"])
	assert.Equal(t, "shown", entry["message"])
}

func TestSetup_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Setup("loud", "json", &buf))
	assert.Error(t, Setup("info", "xml", &buf))
}
