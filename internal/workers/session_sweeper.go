package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/plantdash/plantdash/internal/registry"
)

// DefaultSweepSchedule runs the sweeper every quarter hour
const DefaultSweepSchedule = "*/15 * * * *"

// StartSessionSweeper purges browser sessions idle for longer than ttl, once
// on startup and then on schedule. The returned cron must be stopped on
// shutdown.
func StartSessionSweeper(reg *registry.Registry, schedule string, ttl time.Duration, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		sweepSessions(reg, ttl, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	sweepSessions(reg, ttl, logger)
	c.Start()

	logger.Info().Str("schedule", schedule).Dur("ttl", ttl).Msg("Session sweeper started")
	return c, nil
}

func sweepSessions(reg *registry.Registry, ttl time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := reg.Sweep(ctx, ttl)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to sweep browser sessions")
		return
	}

	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("Swept idle browser sessions")
		return
	}
	logger.Debug().Msg("No idle browser sessions")
}
