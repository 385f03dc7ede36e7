package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_WritesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Level: "info", Writer: buf})

	logger.Info().Str("document", "doc-1").Msg("saved")

	assert.Contains(t, buf.String(), `"document":"doc-1"`)
	assert.Contains(t, buf.String(), `"message":"saved"`)
	assert.Contains(t, buf.String(), `"time"`)
}

func TestNew_DefaultLevelIsWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Writer: buf})

	logger.Info().Msg("hidden")
	assert.Equal(t, 0, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(""))
}
