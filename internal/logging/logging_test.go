package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := configure(logrus.New(), &buf, "debug", "json")
	require.NoError(t, err)

	l.WithField("module", "studio").Debug("contract loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "studio", entry["module"])
	assert.Equal(t, "contract loaded", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
}

func TestConfigureLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := configure(logrus.New(), &buf, "", "text")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigureRejectsBadInput(t *testing.T) {
	_, err := configure(logrus.New(), &bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)

	_, err = configure(logrus.New(), &bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
