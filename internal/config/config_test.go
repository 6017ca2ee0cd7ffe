package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(quietLogger(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "opc.tcp://127.0.0.1:46010", cfg.Session.EndpointURL)
	assert.Equal(t, 16, cfg.Cache.MaxConcurrentRequests)
	ttl, err := cfg.NodeHandleTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
	timeout, err := cfg.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)

	require.Len(t, cfg.DemoServer.Simulators, 2)
	temperature := cfg.DemoServer.Simulators[0]
	assert.Equal(t, "Temperature", temperature.SensorId)
	assert.Equal(t, 100.0, temperature.HighLimit)
	assert.Equal(t, uint32(3), temperature.DelayMax)
	assert.Equal(t, "root", cfg.DemoServer.Users[0].Username)
	assert.True(t, cfg.Metrics.EnablePrometheus)
	assert.Equal(t, "INFO", cfg.Logger.Level)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "uafacade/alarms", cfg.MQTT.TopicPrefix)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	file := `{"cache": {"node_handle_ttl": "5m"}, "logger": {"format": "JSON"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(file), 0o644))

	cfg, err := Load(quietLogger(), dir)
	require.NoError(t, err)
	ttl, err := cfg.NodeHandleTTL()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
	assert.Equal(t, "JSON", cfg.Logger.Format)
	assert.Equal(t, 16, cfg.Cache.MaxConcurrentRequests, "unset keys keep defaults")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UAFACADE_SESSION_ENDPOINT_URL", "opc.tcp://plc:4840")
	t.Setenv("UAFACADE_CACHE_MAX_CONCURRENT_REQUESTS", "4")

	cfg, err := Load(quietLogger(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "opc.tcp://plc:4840", cfg.Session.EndpointURL)
	assert.Equal(t, 4, cfg.Cache.MaxConcurrentRequests)
}

func TestDisabledMQTTIsNotValidated(t *testing.T) {
	dir := t.TempDir()
	file := `{"mqtt": {"enabled": false, "qos": 7, "url": ""}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(file), 0o644))
	_, err := Load(quietLogger(), dir)
	assert.NoError(t, err)
}

func TestInvalidConfigs(t *testing.T) {
	for name, file := range map[string]string{
		"negative ttl":     `{"cache": {"node_handle_ttl": "-1s"}}`,
		"bad duration":     `{"session": {"request_timeout": "soon"}}`,
		"negative workers": `{"cache": {"max_concurrent_requests": -1}}`,
		"no endpoint":      `{"session": {"endpoint_url": ""}}`,
		"broken json":      `{"session": `,
		"mqtt qos":         `{"mqtt": {"enabled": true, "qos": 3}}`,
		"mqtt no url":      `{"mqtt": {"enabled": true, "url": ""}}`,
		"mqtt timeout":     `{"mqtt": {"enabled": true, "connect_timeout": "x"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(file), 0o644))
			_, err := Load(quietLogger(), dir)
			assert.Error(t, err)
		})
	}
}
