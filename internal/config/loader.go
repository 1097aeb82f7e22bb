// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, empty for env-only configuration.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

func (l *Loader) envString(name string, dst *string)     { *dst = ParseString(l.key(name), *dst) }
func (l *Loader) envInt(name string, dst *int)           { *dst = ParseInt(l.key(name), *dst) }
func (l *Loader) envInt64(name string, dst *int64)       { *dst = ParseInt64(l.key(name), *dst) }
func (l *Loader) envBool(name string, dst *bool)         { *dst = ParseBool(l.key(name), *dst) }
func (l *Loader) envFloat(name string, dst *float64)     { *dst = ParseFloat(l.key(name), *dst) }
func (l *Loader) envDur(name string, dst *time.Duration) { *dst = ParseDuration(l.key(name), *dst) }

// Load builds the configuration: defaults, then the YAML file (strict), then
// environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file on top of cfg. Unknown fields are fatal.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// expandEnv expands ${VAR} references so secrets can stay out of the file.
func expandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("LOG_SERVICE", &cfg.Log.Service)

	l.envString("BUS_BACKEND", &cfg.Bus.Backend)
	l.envString("BUS_IN_TOPIC", &cfg.Bus.InTopic)
	l.envString("BUS_OUT_TOPIC", &cfg.Bus.OutTopic)
	l.envString("BUS_GROUP", &cfg.Bus.Group)
	l.envString("BUS_CONSUMER", &cfg.Bus.Consumer)
	l.envInt64("BUS_MAXLEN", &cfg.Bus.MaxLen)
	l.envDur("BUS_BLOCK", &cfg.Bus.Block)

	l.envString("REDIS_ADDR", &cfg.Redis.Addr)
	l.envString("REDIS_PASSWORD", &cfg.Redis.Password)
	l.envInt("REDIS_DB", &cfg.Redis.DB)

	l.envString("STORE_BACKEND", &cfg.Store.Backend)
	l.envString("STORE_PATH", &cfg.Store.Path)
	l.envString("STORE_KEY_PREFIX", &cfg.Store.KeyPrefix)
	l.envDur("STORE_RETENTION", &cfg.Store.Retention)
	l.envDur("STORE_SWEEP_INTERVAL", &cfg.Store.SweepInterval)

	l.envString("REGISTRY_URL", &cfg.Registry.BaseURL)
	l.envString("REGISTRY_TOKEN", &cfg.Registry.Token)
	l.envDur("REGISTRY_TIMEOUT", &cfg.Registry.Timeout)
	l.envInt("REGISTRY_BREAKER_THRESHOLD", &cfg.Registry.BreakerThreshold)
	l.envDur("REGISTRY_BREAKER_RESET", &cfg.Registry.BreakerReset)
	l.envString("REGISTRY_CACHE", &cfg.Registry.Cache)
	l.envDur("REGISTRY_CACHE_TTL", &cfg.Registry.CacheTTL)

	l.envString("ADMIN_LISTEN", &cfg.Admin.ListenAddr)
	l.envInt("ADMIN_RATE_LIMIT", &cfg.Admin.RequestsPerMin)
	l.envDur("ADMIN_READ_TIMEOUT", &cfg.Admin.ReadTimeout)
	l.envDur("ADMIN_SHUTDOWN_TIMEOUT", &cfg.Admin.ShutdownTimeout)

	l.envBool("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	l.envString("TELEMETRY_EXPORTER", &cfg.Telemetry.Exporter)
	l.envString("TELEMETRY_ENDPOINT", &cfg.Telemetry.Endpoint)
	l.envString("TELEMETRY_ENVIRONMENT", &cfg.Telemetry.Environment)
	l.envFloat("TELEMETRY_SAMPLING_RATE", &cfg.Telemetry.SamplingRate)

	l.envDur("RETRY_MIN_BACKOFF", &cfg.Retry.MinBackoff)
	l.envDur("RETRY_MAX_BACKOFF", &cfg.Retry.MaxBackoff)
	l.envFloat("RETRY_RATE", &cfg.Retry.Rate)
	l.envInt("RETRY_BURST", &cfg.Retry.Burst)
}
