package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoresConfig(t *testing.T) {
	sc, err := DecodeStoresConfigMap(map[string]interface{}{
		"connection": map[string]interface{}{
			"retention": "1h",
		},
	})
	require.NoError(t, err)

	sc.Default(DefaultStoresConfig)
	require.NoError(t, sc.Validate())

	assert.Equal(t, time.Hour, *sc.Connection.Retention)
	assert.Equal(t, 65536, *sc.Connection.MaxEntries)
	assert.Equal(t, 16384, *sc.DNS.MaxEntries)
	assert.Equal(t, "StoresConfig{Connection: [retention:1h0m0s, max:65536], DNS: [max:16384]}", sc.String())
}

func TestStoresConfigInvalid(t *testing.T) {
	_, err := DecodeStoresConfigMap(map[string]interface{}{
		"connection": map[string]interface{}{"retention": "forever"},
	})
	assert.Error(t, err)

	_, err = DecodeStoresConfigMap(map[string]interface{}{"unknown": 1})
	assert.Error(t, err)

	sc, err := DecodeStoresConfigMap(map[string]interface{}{
		"dns": map[string]interface{}{"max_entries": -1},
	})
	require.NoError(t, err)
	sc.Default(DefaultStoresConfig)
	assert.Error(t, sc.Validate())
}

func TestCaptureConfig(t *testing.T) {
	cc, err := DecodeCaptureConfigMap(map[string]interface{}{
		"poll_interval": "250ms",
		"dns_ringbuf":   "",
	})
	require.NoError(t, err)

	cc.Default(DefaultCaptureConfig)
	require.NoError(t, cc.Validate())

	assert.Equal(t, 250*time.Millisecond, *cc.PollInterval)
	assert.Equal(t, DefaultCaptureConfig.TrafficMap, cc.TrafficMap)
	assert.Empty(t, cc.DNSRingbuf, "explicitly empty path disables the adapter")
}

func TestCaptureConfigInvalid(t *testing.T) {
	cc, err := DecodeCaptureConfigMap(map[string]interface{}{"poll_interval": "0s"})
	require.NoError(t, err)
	cc.Default(DefaultCaptureConfig)
	assert.Error(t, cc.Validate())
}
