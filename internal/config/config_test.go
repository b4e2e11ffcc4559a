package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid http port",
			mutate: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			wantErr: true,
		},
		{
			name: "cluster enabled without node_addr",
			mutate: func(c *Config) {
				c.Cluster.Enabled = true
				c.Cluster.Peers = []string{"10.0.0.2:7000"}
			},
			wantErr: true,
		},
		{
			name: "cluster enabled without peers",
			mutate: func(c *Config) {
				c.Cluster.Enabled = true
				c.Cluster.NodeAddr = "10.0.0.1:7000"
			},
			wantErr: true,
		},
		{
			name: "cluster enabled with node_addr and peers",
			mutate: func(c *Config) {
				c.Cluster.Enabled = true
				c.Cluster.NodeAddr = "10.0.0.1:7000"
				c.Cluster.Peers = []string{"10.0.0.1:7000", "10.0.0.2:7000"}
			},
			wantErr: false,
		},
		{
			name: "inverted election timeout window",
			mutate: func(c *Config) {
				c.Cluster.Enabled = true
				c.Cluster.NodeAddr = "10.0.0.1:7000"
				c.Cluster.Peers = []string{"10.0.0.2:7000"}
				c.Cluster.ElectionTimeoutMin = 6 * time.Second
				c.Cluster.ElectionTimeoutMax = 3 * time.Second
			},
			wantErr: true,
		},
		{
			name: "leader term shorter than heartbeat interval",
			mutate: func(c *Config) {
				c.Cluster.Enabled = true
				c.Cluster.NodeAddr = "10.0.0.1:7000"
				c.Cluster.Peers = []string{"10.0.0.2:7000"}
				c.Cluster.LeaderTerm = 500 * time.Millisecond
			},
			wantErr: true,
		},
		{
			name: "non-positive presence ttl",
			mutate: func(c *Config) {
				c.Presence.TTL = 0
			},
			wantErr: true,
		},
		{
			name: "unknown store type",
			mutate: func(c *Config) {
				c.Store.Type = "dynamo"
			},
			wantErr: true,
		},
		{
			name: "etcd store without endpoints",
			mutate: func(c *Config) {
				c.Store.Type = "etcd"
				c.Etcd.Endpoints = nil
			},
			wantErr: true,
		},
		{
			name: "memory store skips etcd validation",
			mutate: func(c *Config) {
				c.Store.Type = "memory"
				c.Etcd.Endpoints = nil
			},
			wantErr: false,
		},
		{
			name: "invalid logging level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			wantErr: true,
		},
		{
			name: "invalid logging format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 8000 {
		t.Errorf("expected HTTPPort 8000, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Cluster.Enabled {
		t.Error("default config should run single-server")
	}

	if cfg.Presence.TTL != 10*time.Second {
		t.Errorf("expected presence TTL 10s, got %v", cfg.Presence.TTL)
	}

	if cfg.Cluster.ElectionTimeoutMin != 3*time.Second || cfg.Cluster.ElectionTimeoutMax != 6*time.Second {
		t.Errorf("unexpected election timeout window: [%v, %v]",
			cfg.Cluster.ElectionTimeoutMin, cfg.Cluster.ElectionTimeoutMax)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 8000 {
		t.Errorf("expected default HTTPPort 8000, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Store.Type != "etcd" {
		t.Errorf("expected default store type etcd, got %s", cfg.Store.Type)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  host: 127.0.0.1
  http_port: 9100
cluster:
  enabled: true
  node_addr: 127.0.0.1:7100
  peers:
    - 127.0.0.1:7100
    - 127.0.0.1:7101
  leader_term: 45s
presence:
  ttl: 15s
store:
  type: memory
logging:
  level: debug
  format: console
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 9100 {
		t.Errorf("expected HTTPPort 9100, got %d", cfg.Server.HTTPPort)
	}

	if !cfg.Cluster.Enabled || cfg.Cluster.NodeAddr != "127.0.0.1:7100" {
		t.Errorf("cluster section not applied: %+v", cfg.Cluster)
	}

	if cfg.Cluster.LeaderTerm != 45*time.Second {
		t.Errorf("expected leader_term 45s, got %v", cfg.Cluster.LeaderTerm)
	}

	// Values absent from the file keep their defaults
	if cfg.Cluster.HeartbeatInterval != time.Second {
		t.Errorf("expected default heartbeat_interval 1s, got %v", cfg.Cluster.HeartbeatInterval)
	}

	if !cfg.IsDevelopment() {
		t.Error("debug/console config should be development mode")
	}

	if cfg.ListenAddr() != "127.0.0.1:9100" {
		t.Errorf("unexpected listen addr: %s", cfg.ListenAddr())
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	content := `
server:
  http_port: 70000
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for out-of-range port")
	}
}
