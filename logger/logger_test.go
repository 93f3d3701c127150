package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pharma-stock/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel(" WARN "))
	assert.Equal(t, zerolog.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("verbose"))
}

func TestNewWithWriter_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(logger.Config{Env: "production", Level: "info"}, &buf)

	log.Debug().Msg("hidden")
	sub := log.Component("ledger")
	sub.Info().Uint32("batch_id", 3).Msg("batch imported")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "batch imported", entry["message"])
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, float64(3), entry["batch_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewWithWriter_TraceReachesComponents(t *testing.T) {
	// GIVEN: A logger configured at trace level
	var buf bytes.Buffer
	log := logger.NewWithWriter(logger.Config{Env: "production", Level: "trace"}, &buf)

	// WHEN: A component logs at trace
	sub := log.Component("api")
	sub.Trace().Msg("request decoded")

	// THEN: The entry is written
	assert.Equal(t, zerolog.TraceLevel, logger.ParseLevel("TRACE"))
	assert.Contains(t, buf.String(), `"level":"trace"`)
	assert.Contains(t, buf.String(), "request decoded")
}
