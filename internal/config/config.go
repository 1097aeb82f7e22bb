// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration. Precedence is
// environment > YAML file > defaults.
package config

import "time"

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "STATUSFEED_"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Log       LogConfig       `yaml:"log"`
	Bus       BusConfig       `yaml:"bus"`
	Redis     RedisConfig     `yaml:"redis"`
	Store     StoreConfig     `yaml:"store"`
	Registry  RegistryConfig  `yaml:"registry"`
	Admin     AdminConfig     `yaml:"admin"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Retry     RetryConfig     `yaml:"retry"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// BusConfig selects the message transport and its topics.
type BusConfig struct {
	Backend  string        `yaml:"backend"` // memory | redis
	InTopic  string        `yaml:"inTopic"`
	OutTopic string        `yaml:"outTopic"`
	Group    string        `yaml:"group"`
	Consumer string        `yaml:"consumer"`
	MaxLen   int64         `yaml:"maxLen"`
	Block    time.Duration `yaml:"block"`
}

// RedisConfig is shared by every redis-backed component.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StoreConfig struct {
	Backend   string        `yaml:"backend"` // memory | badger | sqlite | redis
	Path      string        `yaml:"path"`
	KeyPrefix string        `yaml:"keyPrefix"`
	Retention time.Duration `yaml:"retention"`
	// SweepInterval paces terminal-period cleanup on memory and sqlite.
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

type RegistryConfig struct {
	BaseURL          string        `yaml:"baseUrl"`
	Token            string        `yaml:"token"`
	Timeout          time.Duration `yaml:"timeout"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
	Cache            string        `yaml:"cache"` // none | memory | redis
	CacheTTL         time.Duration `yaml:"cacheTtl"`
}

type AdminConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	RequestsPerMin  int           `yaml:"requestsPerMinute"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc | http
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// RetryConfig bounds the consumer's redelivery loop.
type RetryConfig struct {
	MinBackoff time.Duration `yaml:"minBackoff"`
	MaxBackoff time.Duration `yaml:"maxBackoff"`
	Rate       float64       `yaml:"rate"` // retries per second
	Burst      int           `yaml:"burst"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{Level: "info", Service: "statusfeed"},
		Bus: BusConfig{
			Backend:  "memory",
			InTopic:  "case-events",
			OutTopic: "case-status",
			Group:    "statusfeed",
			Consumer: "statusfeed-1",
			MaxLen:   100_000,
			Block:    2 * time.Second,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Store: StoreConfig{
			Backend:       "memory",
			Path:          "data/periods",
			KeyPrefix:     "statusfeed:period:",
			SweepInterval: 10 * time.Minute,
		},
		Registry: RegistryConfig{
			Timeout:          10 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
			Cache:            "memory",
			CacheTTL:         24 * time.Hour,
		},
		Admin: AdminConfig{
			ListenAddr:      ":8080",
			RequestsPerMin:  600,
			ReadTimeout:     5 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
		Retry: RetryConfig{
			MinBackoff: 200 * time.Millisecond,
			MaxBackoff: 30 * time.Second,
			Rate:       5,
			Burst:      1,
		},
	}
}
