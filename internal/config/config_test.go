package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("signing-key"))

	tcases := []struct {
		name         string
		serverAddr   string
		databaseDSN  string
		base64Secret string
		expectErr    bool
	}{
		{
			name:         "valid config",
			serverAddr:   "localhost:8000",
			databaseDSN:  "host=localhost",
			base64Secret: secret,
		},
		{
			name:         "missing server address",
			databaseDSN:  "host=localhost",
			base64Secret: secret,
			expectErr:    true,
		},
		{
			name:         "missing dsn",
			serverAddr:   "localhost:8000",
			base64Secret: secret,
			expectErr:    true,
		},
		{
			name:        "missing signing secret",
			serverAddr:  "localhost:8000",
			databaseDSN: "host=localhost",
			expectErr:   true,
		},
		{
			name:         "invalid base64 secret",
			serverAddr:   "localhost:8000",
			databaseDSN:  "host=localhost",
			base64Secret: "not base64!!",
			expectErr:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.serverAddr, tc.databaseDSN, tc.base64Secret, []string{"http://localhost:3000"})
			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.serverAddr, cfg.ServerAddr)
			assert.Equal(t, []byte("signing-key"), cfg.SigningKey)
			assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
		})
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("ES_REDIS_ADDR", "localhost:6379")
	t.Setenv("ES_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("ES_KAFKA_TOPIC", "ticket-sales")

	cfg := &Config{}
	assert.NoError(t, cfg.LoadEnv())

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "ticket-sales", cfg.KafkaTopic)
}

func TestLoadEnvLeavesUnsetValues(t *testing.T) {
	cfg := &Config{RedisAddr: "configured:6379"}
	assert.NoError(t, cfg.LoadEnv())

	assert.Equal(t, "configured:6379", cfg.RedisAddr)
}
