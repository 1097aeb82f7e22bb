// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/statusfeed/internal/casestatus/store"
	"github.com/ManuGH/statusfeed/internal/log"
)

// runSweeper removes terminal periods older than retention every interval
// until ctx is done.
func runSweeper(ctx context.Context, sw store.Sweeper, retention, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweepOnce(ctx, sw, now.Add(-retention), logger)
		}
	}
}

func sweepOnce(ctx context.Context, sw store.Sweeper, before time.Time, logger zerolog.Logger) {
	n, err := sw.SweepTerminal(ctx, before)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "store.sweep_failed").Msg("retention sweep failed")
		}
		return
	}
	if n > 0 {
		logger.Info().Int("removed", n).Time("before", before).Str(log.FieldEvent, "store.swept").Msg("removed expired periods")
	}
}
