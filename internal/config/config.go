package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string

	// RedisAddr enables the Redis-backed broker when non-empty; otherwise
	// an in-memory broker serves the single-process case.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// KafkaBrokers enables the ticket-sales stream when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
	}, nil
}

// LoadEnv reads an optional .env file and overlays ES_-prefixed environment
// variables onto the config. Values already set stay unless the variable is
// present.
func (c *Config) LoadEnv() error {
	// a missing .env file is not an error
	_ = godotenv.Load()

	if v := os.Getenv("ES_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("ES_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("ES_KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ES_KAFKA_TOPIC"); v != "" {
		c.KafkaTopic = v
	}

	return nil
}
