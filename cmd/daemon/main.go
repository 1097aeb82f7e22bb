// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command daemon runs the case status feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/statusfeed/internal/config"
	"github.com/ManuGH/statusfeed/internal/daemon"
	sflog "github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/platform/httpx"
	"github.com/ManuGH/statusfeed/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	sflog.Configure(sflog.Config{
		Level:   "info",
		Service: "statusfeed",
		Version: version.Version,
	})
	logger := sflog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
	}

	// ENV > File > Defaults
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(sflog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	sflog.Configure(sflog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(sflog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("configuration loaded")

	logger.Info().
		Str(sflog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Msg("starting statusfeed")
	logger.Info().Msgf("→ Registry: %s (token: %v)", httpx.SanitizeURL(cfg.Registry.BaseURL), cfg.Registry.Token != "")
	logger.Info().Msgf("→ Bus: %s (%s → %s)", cfg.Bus.Backend, cfg.Bus.InTopic, cfg.Bus.OutTopic)
	logger.Info().Msgf("→ Store: %s", cfg.Store.Backend)
	if cfg.UsesRedis() {
		logger.Info().Msgf("→ Redis: %s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)
	}
	if cfg.Admin.ListenAddr != "" {
		logger.Info().Msgf("→ Admin: %s", cfg.Admin.ListenAddr)
	}

	rt, err := daemon.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(sflog.FieldEvent, "runtime.build_failed").
			Msg("failed to assemble runtime")
	}

	app := daemon.NewApp(rt, config.NewHolder(cfg, loader))
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str(sflog.FieldEvent, "app.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
