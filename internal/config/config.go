package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Cluster  ClusterConfig  `mapstructure:"cluster"`
	Presence PresenceConfig `mapstructure:"presence"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Store    StoreConfig    `mapstructure:"store"`
	Events   EventsConfig   `mapstructure:"events"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// ClusterConfig represents leader-election configuration.
// When Enabled is false the node runs single-server and always reports
// itself leader.
type ClusterConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	NodeAddr           string        `mapstructure:"node_addr"` // host:port this node listens on for peer traffic
	Peers              []string      `mapstructure:"peers"`     // static peer list, may include NodeAddr
	HeartbeatInterval  time.Duration `mapstructure:"heartbeat_interval"`
	ElectionTimeoutMin time.Duration `mapstructure:"election_timeout_min"`
	ElectionTimeoutMax time.Duration `mapstructure:"election_timeout_max"`
	LeaderTerm         time.Duration `mapstructure:"leader_term"` // bounded tenure before re-election
	NetTimeout         time.Duration `mapstructure:"net_timeout"` // per-peer dial/read/write bound
	LoadRefresh        time.Duration `mapstructure:"load_refresh"`
}

// PresenceConfig represents the online-presence table configuration
type PresenceConfig struct {
	TTL time.Duration `mapstructure:"ttl"` // heartbeat freshness window
}

// EtcdConfig represents etcd configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// StoreConfig selects the durable record store backend
type StoreConfig struct {
	Type string `mapstructure:"type"` // etcd (default), memory
}

// EventsConfig represents lifecycle event bus configuration
type EventsConfig struct {
	Type     string `mapstructure:"type"`     // memory (default), nats, redis, kafka
	URL      string `mapstructure:"url"`      // Bus server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`
	RedisStream string `mapstructure:"redis_stream"` // Stream prefix (default: "pixveil")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// AuthConfig represents API key authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Cluster.Validate(); err != nil {
		return fmt.Errorf("cluster config: %w", err)
	}

	if err := c.Presence.Validate(); err != nil {
		return fmt.Errorf("presence config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if c.Store.Type != "memory" {
		if err := c.Etcd.Validate(); err != nil {
			return fmt.Errorf("etcd config: %w", err)
		}
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	return nil
}

// Validate validates cluster configuration
func (c *ClusterConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.NodeAddr == "" {
		return fmt.Errorf("cluster.node_addr is required when cluster is enabled")
	}

	if len(c.Peers) == 0 {
		return fmt.Errorf("cluster.peers is required when cluster is enabled")
	}

	if c.ElectionTimeoutMin <= 0 || c.ElectionTimeoutMax <= 0 {
		return fmt.Errorf("cluster election timeouts must be positive")
	}

	if c.ElectionTimeoutMax < c.ElectionTimeoutMin {
		return fmt.Errorf("cluster.election_timeout_max must be >= election_timeout_min")
	}

	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("cluster.heartbeat_interval must be positive")
	}

	if c.LeaderTerm <= c.HeartbeatInterval {
		return fmt.Errorf("cluster.leader_term must exceed heartbeat_interval")
	}

	if c.NetTimeout <= 0 {
		return fmt.Errorf("cluster.net_timeout must be positive")
	}

	return nil
}

// Validate validates presence configuration
func (c *PresenceConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("presence.ttl must be positive")
	}

	return nil
}

// Validate validates etcd configuration
func (c *EtcdConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required")
	}

	if c.DialTimeout <= 0 {
		return fmt.Errorf("etcd.dial_timeout must be positive")
	}

	return nil
}

// Validate validates store configuration
func (c *StoreConfig) Validate() error {
	switch c.Type {
	case "", "etcd", "memory":
		return nil
	default:
		return fmt.Errorf("store.type must be 'etcd' or 'memory'")
	}
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
