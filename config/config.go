package config

import (
	"os"
	"strconv"
	"time"
)

// ChannelConfig holds settings for a reconnecting message channel.
type ChannelConfig struct {
	Endpoint     string   // ws:// or wss:// URL of the remote endpoint
	Subprotocols []string // optional WebSocket sub-protocol list

	MaxReconnectAttempts int           // automatic attempts before giving up, default 5
	ReconnectInterval    time.Duration // base backoff interval, default 3s
	MaxReconnectDelay    time.Duration // absolute backoff ceiling, 0 = uncapped
	HeartbeatInterval    time.Duration // liveness probe cadence, default 30s, 0 disables
	AutoReconnect        bool          // default true
}

// DefaultChannelConfig returns a ChannelConfig with sensible defaults.
func DefaultChannelConfig(endpoint string) ChannelConfig {
	return ChannelConfig{
		Endpoint:             endpoint,
		MaxReconnectAttempts: 5,
		ReconnectInterval:    3 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		AutoReconnect:        true,
	}
}

// ServerConfig holds WebSocket server configuration.
type ServerConfig struct {
	Addr            string
	MaxConnections  int
	PingInterval    int // seconds
	WriteTimeout    int // seconds
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:            ":8090",
		MaxConnections:  1000,
		PingInterval:    30,
		WriteTimeout:    10,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// ServerConfigFromEnv loads server configuration from environment
// variables. Falls back to defaults for any missing values.
func ServerConfigFromEnv() *ServerConfig {
	cfg := DefaultServerConfig()

	if addr := os.Getenv("RELAY_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if v := os.Getenv("RELAY_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConnections = n
		}
	}
	if v := os.Getenv("RELAY_WRITE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WriteTimeout = n
		}
	}
	return cfg
}
