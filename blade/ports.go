package blade

import (
	"context"
	"time"

	"bladenet/infra/cmdrun"
)

// Runner executes external commands with bounded-wait semantics.
// Satisfied by cmdrun.Exec; tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, spec cmdrun.Command) error
}

// ClockSource reports the offset between the blade clock and a
// reference clock. In production this is an NTP query.
type ClockSource interface {
	Offset(ctx context.Context) (time.Duration, error)
}
