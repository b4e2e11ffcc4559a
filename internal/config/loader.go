package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pixveil/pixveil/internal/utils"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")            // Current directory
		v.AddConfigPath("./configs")    // Project configs directory
		v.AddConfigPath("/etc/pixveil") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("PIXVEIL")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)

	// Cluster defaults (single-server mode unless enabled)
	v.SetDefault("cluster.enabled", false)
	v.SetDefault("cluster.heartbeat_interval", utils.DefaultHeartbeatInterval)
	v.SetDefault("cluster.election_timeout_min", utils.DefaultElectionTimeoutMin)
	v.SetDefault("cluster.election_timeout_max", utils.DefaultElectionTimeoutMax)
	v.SetDefault("cluster.leader_term", utils.DefaultLeaderTerm)
	v.SetDefault("cluster.net_timeout", utils.DefaultNetTimeout)
	v.SetDefault("cluster.load_refresh", utils.DefaultLoadRefresh)

	// Presence defaults
	v.SetDefault("presence.ttl", utils.DefaultPresenceTTL)

	// Etcd defaults
	v.SetDefault("etcd.endpoints", []string{"http://localhost:2379"})
	v.SetDefault("etcd.dial_timeout", "5s")

	// Store defaults
	v.SetDefault("store.type", "etcd")

	// Event bus defaults
	v.SetDefault("events.type", "memory")
	v.SetDefault("events.url", "nats://localhost:4222")
	v.SetDefault("events.redis_stream", "pixveil")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 8000,
		},
		Cluster: ClusterConfig{
			Enabled:            false,
			HeartbeatInterval:  utils.DefaultHeartbeatInterval,
			ElectionTimeoutMin: utils.DefaultElectionTimeoutMin,
			ElectionTimeoutMax: utils.DefaultElectionTimeoutMax,
			LeaderTerm:         utils.DefaultLeaderTerm,
			NetTimeout:         utils.DefaultNetTimeout,
			LoadRefresh:        utils.DefaultLoadRefresh,
		},
		Presence: PresenceConfig{
			TTL: utils.DefaultPresenceTTL,
		},
		Etcd: EtcdConfig{
			Endpoints:   []string{"http://localhost:2379"},
			DialTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Type: "memory",
		},
		Events: EventsConfig{
			Type: "memory",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
