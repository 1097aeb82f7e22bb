// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ManuGH/statusfeed/internal/config"
	"github.com/ManuGH/statusfeed/internal/log"
)

// PerformStartupChecks validates the environment before any component is
// opened.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	switch cfg.Store.Backend {
	case "badger":
		if err := checkWritableDir(logger, cfg.Store.Path); err != nil {
			return fmt.Errorf("store directory check failed: %w", err)
		}
	case "sqlite":
		if err := checkWritableDir(logger, filepath.Dir(cfg.Store.Path)); err != nil {
			return fmt.Errorf("store directory check failed: %w", err)
		}
	}

	logger.Info().
		Str("bus", cfg.Bus.Backend).
		Str("store", cfg.Store.Backend).
		Str("registry_cache", cfg.Registry.Cache).
		Msg("startup checks passed")
	return nil
}

// checkWritableDir creates path when missing and probes it with a temp file.
func checkWritableDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	probe := filepath.Join(path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(probe)

	logger.Debug().Str("path", path).Msg("store directory is writable")
	return nil
}
