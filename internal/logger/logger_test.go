package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"notes-quiz/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeWithWriter_Production(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitializeWithWriter(config.LoggerConfig{Env: "production", Level: "debug"}, &buf))

	Get().Debug("page cache hit", zap.String("path", "nlp/notes.pdf"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "page cache hit", entry["msg"])
	assert.Equal(t, "nlp/notes.pdf", entry["path"])
}

func TestInitializeWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitializeWithWriter(config.LoggerConfig{Level: "warn"}, &buf))

	Get().Info("dropped")
	assert.Zero(t, buf.Len())

	Get().Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInitializeWithWriter_BadLevel(t *testing.T) {
	assert.Error(t, InitializeWithWriter(config.LoggerConfig{Level: "loud"}, &bytes.Buffer{}))
}
