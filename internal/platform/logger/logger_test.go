package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"idregistry/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json at info hides debug", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.LogConfig{Level: "info", Format: "json"})
		log.Debug("hidden")
		log.Info("shown", "registry_id", "main")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"registry_id":"main"`)
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "text"})
		log.Debug("visible")
		assert.Contains(t, buf.String(), "msg=visible")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		assert.Equal(t, "INFO", parseLevel("loud").String())
	})
}
