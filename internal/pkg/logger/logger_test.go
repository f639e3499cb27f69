package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/sub_go_server/config"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	defer Setup(config.LogConfig{}, &bytes.Buffer{})

	log.WithField("invoice", "INV-1").Debug("billing: charged")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "billing: charged", entry["msg"])
	assert.Equal(t, "INV-1", entry["invoice"])
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Setup(config.LogConfig{Level: "loud"}, &buf)

	assert.Equal(t, log.InfoLevel, log.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())
}
