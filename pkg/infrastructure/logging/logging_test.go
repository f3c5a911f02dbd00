package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithWriter_JSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, SetupWithWriter("warn", "json", &buf))

	log.Info().Msg("hidden")
	log.Warn().Int("fallback_records", 3).Msg("visible")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, float64(3), line["fallback_records"])
}

func TestSetupWithWriter_Invalid(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	assert.Error(t, SetupWithWriter("loud", "json", &buf))
	assert.Error(t, SetupWithWriter("info", "xml", &buf))
	assert.NoError(t, SetupWithWriter("debug", "console", &buf))
}
