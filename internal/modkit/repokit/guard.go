package repokit

import (
	"context"
	"time"

	perr "ottscout/internal/platform/errors"
)

// PingTimeout bounds Ping when ctx has no deadline
const PingTimeout = 5 * time.Second

// Pinger is any backend that can report readiness
type Pinger interface {
	Ping(context.Context) error
}

// Ping checks that the named backend answers, as an Unavailable error when it does not
func Ping(ctx context.Context, name string, p Pinger) error {
	if p == nil {
		return perr.Unavailablef("%s: not configured", name)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, PingTimeout)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s ping", name)
	}
	return nil
}
