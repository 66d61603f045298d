package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestSetupJSON(t *testing.T) {
	defer Setup(Config{Level: "info", Format: FormatConsole})

	var buf bytes.Buffer
	l := Setup(Config{Level: "info", Format: FormatJSON, Output: &buf})
	l.Info().Str("roomNumber", "101").Msg("assigned")
	l.Debug().Msg("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "assigned", entry["message"])
	assert.Equal(t, "101", entry["roomNumber"])
	assert.Equal(t, "housing", entry["service"])
}
