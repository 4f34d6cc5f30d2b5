package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
	Broker Broker `yaml:"broker"`
	Guard  Guard  `yaml:"guard"`
	Quotes Quotes `yaml:"quotes"`
	Store  Store  `yaml:"store"`
	Notify Notify `yaml:"notify"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Broker struct {
	BridgeURL     string `yaml:"bridge_url"`
	TimeoutMs     int    `yaml:"timeout_ms"`
	DefaultCAPath string `yaml:"default_ca_path"`
}

type Guard struct {
	TrafficRatio  float64 `yaml:"traffic_ratio"`
	MemoryLimitMB int     `yaml:"memory_limit_mb"`
}

type Quotes struct {
	BatchSize       int `yaml:"batch_size"`
	BatchIntervalMs int `yaml:"batch_interval_ms"`
}

type Store struct {
	Sqlite Sqlite `yaml:"sqlite"`
}

type Sqlite struct {
	Path string `yaml:"path"`
}

type Notify struct {
	Webhook     string `yaml:"webhook"`
	Secret      string `yaml:"secret"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	CooldownSec int    `yaml:"cooldown_sec"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: Server{Port: 8080},
		Log: Log{
			Level: "info",
			File:  "/tmp/shioaji-gateway.log",
		},
		Broker: Broker{
			BridgeURL:     "http://127.0.0.1:9217",
			TimeoutMs:     30000,
			DefaultCAPath: "/app/Sinopac.pfx",
		},
		Guard: Guard{
			TrafficRatio:  0.8,
			MemoryLimitMB: 12288,
		},
		Quotes: Quotes{
			BatchSize:       200,
			BatchIntervalMs: 1000,
		},
		Store: Store{
			Sqlite: Sqlite{Path: "data/gateway.db"},
		},
		Notify: Notify{
			TimeoutMs:   5000,
			CooldownSec: 300,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("BRIDGE_URL"); v != "" {
		cfg.Broker.BridgeURL = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK"); v != "" {
		cfg.Notify.Webhook = v
	}
	if v := os.Getenv("NOTIFY_SECRET"); v != "" {
		cfg.Notify.Secret = v
	}
	return nil
}
