package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", false)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Str("symbol", "AAPL").Msg("shown")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_UnknownLevel(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "chatty", false)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log = NewWithWriter(&bytes.Buffer{}, "", false)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithWriter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", true)
	log.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}
