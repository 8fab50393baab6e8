package gen

import (
	"context"
	"strings"

	"golang.org/x/time/rate"
)

type wrappedLimiter struct {
	limiter *rate.Limiter
}

func newWrappedLimiter(r rate.Limit, b int) *wrappedLimiter {
	if b < 1 {
		b = 1
	}
	return &wrappedLimiter{
		limiter: rate.NewLimiter(r, b),
	}
}

func (wl *wrappedLimiter) Wait(ctx context.Context) error {
	err := wl.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	// When the limiter computes that the next token would arrive after the
	// context's deadline it returns its own error immediately instead of
	// waiting. Every worker would then need to tell that error apart from a
	// real failure so it doesn't take down the rest of the errgroup early.
	// Rather than spread that check around, detect it here and block until
	// the context actually finishes.
	if strings.Contains(err.Error(), "Wait(n=1) would exceed context deadline") {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}
