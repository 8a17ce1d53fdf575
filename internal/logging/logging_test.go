package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/campusapi/internal/config"
)

func TestNew_JSONFormatAndComponent(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	New(config.LogConfig{Level: "info", Format: "json"}, &buf)

	l := Component("iam")
	l.Debug().Msg("hidden")
	l.Info().Str("email", "a@b.edu").Msg("login")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug line should be filtered at info level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "iam", entry[FieldComponent])
	assert.Equal(t, "login", entry["message"])
	assert.Equal(t, "a@b.edu", entry["email"])
	assert.Contains(t, entry, "time")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	l := New(config.LogConfig{Level: "chatty", Format: "json"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
