// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderReloadAppliesLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	path := writeConfig(t, "log:\n  level: info\nregistry:\n  baseUrl: http://r.local\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	updates := make(chan AppConfig, 1)
	h.RegisterListener(updates)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\nregistry:\n  baseUrl: http://r.local\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "warn", h.Get().Log.Level)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	select {
	case cfg := <-updates:
		assert.Equal(t, "warn", cfg.Log.Level)
	default:
		t.Fatal("listener not notified")
	}
}

func TestHolderReloadKeepsConfigOnError(t *testing.T) {
	path := writeConfig(t, "registry:\n  baseUrl: http://r.local\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("registry:\n  baseUrl: \"\"\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "http://r.local", h.Get().Registry.BaseURL)
}

func TestRestartRequired(t *testing.T) {
	a := validDefaults()
	b := a
	b.Log.Level = "debug"
	assert.False(t, restartRequired(a, b))
	b.Bus.InTopic = "other"
	assert.True(t, restartRequired(a, b))
}

func TestHolderWatchReloadsOnWrite(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	path := writeConfig(t, "log:\n  level: info\nregistry:\n  baseUrl: http://r.local\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\nregistry:\n  baseUrl: http://r.local\n"), 0o600))

	require.Eventually(t, func() bool { return h.Get().Log.Level == "error" }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestHolderWatchWithoutFile(t *testing.T) {
	h := NewHolder(validDefaults(), NewLoader("", ""))
	require.NoError(t, h.Watch(context.Background()))
}
