package blade

import (
	"context"
	"log/slog"
	"time"

	"github.com/beevik/ntp"
)

const (
	defaultNTPPool        = "pool.ntp.org"
	defaultDriftThreshold = 500 * time.Millisecond
)

// NTPClock queries an NTP pool for the blade's clock offset.
// Implements ClockSource.
type NTPClock struct {
	Pool string
}

func (c NTPClock) Offset(_ context.Context) (time.Duration, error) {
	pool := c.Pool
	if pool == "" {
		pool = defaultNTPPool
	}
	resp, err := ntp.Query(pool)
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// checkClock warns when the blade clock drifts past the threshold.
// apt and TLS both misbehave on skewed clocks, so this runs before
// package setup, but it never fails the deployment: blades without
// network time still get provisioned.
func checkClock(ctx context.Context, clock ClockSource) {
	offset, err := clock.Offset(ctx)
	if err != nil {
		slog.Warn("Clock preflight check failed.", "err", err)
		return
	}
	drift := offset
	if drift < 0 {
		drift = -drift
	}
	if drift >= defaultDriftThreshold {
		slog.Warn("Blade clock is skewed.", "offset", offset)
		return
	}
	slog.Debug("Blade clock is in sync.", "offset", offset)
}
