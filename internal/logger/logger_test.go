package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/policy-match/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), tc.in)
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(types.LogConfig{Level: "info"}, &buf), "recall")

	log.Debug().Msg("hidden")
	log.Info().Str("tier", "fulltext").Msg("recall tier hit")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "policy-match", entry["service"])
	assert.Equal(t, "recall", entry["component"])
	assert.Equal(t, "fulltext", entry["tier"])
	assert.Equal(t, "recall tier hit", entry["message"])
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	log := New(types.LogConfig{Level: "debug", Pretty: true}, &buf)
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
