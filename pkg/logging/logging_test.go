package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"valid", Config{Level: LogLevelDebug, Format: LogFormatText}, false},
		{"case insensitive", Config{Level: "WARN", Format: "JSON"}, false},
		{"bad level", Config{Level: "verbose"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFactory_ComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	factory, err := NewFactory(&Config{Level: LogLevelInfo, Format: LogFormatJSON, Writer: &buf})
	require.NoError(t, err)

	logger := factory.GetLogger("storage.registry")
	logger.Info("Constructed adapter instance")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "storage.registry", entry["component"])
	assert.Equal(t, "Constructed adapter instance", entry["msg"])
}

func TestFactory_CachesLoggersPerComponent(t *testing.T) {
	factory, err := NewFactory(nil)
	require.NoError(t, err)

	first := factory.GetLogger("transport.http")
	second := factory.GetLogger("transport.http")
	assert.Same(t, first, second)
}

func TestFactory_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	factory, err := NewFactory(&Config{Level: LogLevelWarn, Format: LogFormatJSON, Writer: &buf})
	require.NoError(t, err)

	logger := factory.GetLogger("main")
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestGlobalFactory(t *testing.T) {
	require.NoError(t, Initialize(&Config{Level: LogLevelDebug}))
	defer Shutdown()

	logger := GetGlobalLogger("main")
	assert.NotNil(t, logger)
}

func TestGetGlobalLogger_Uninitialized(t *testing.T) {
	Shutdown()
	assert.NotNil(t, GetGlobalLogger("main"))
}
