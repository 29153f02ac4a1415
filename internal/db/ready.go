package db

import (
	"context"
	"fmt"
	"time"
)

// readyPollInterval is the delay between pings in WaitForReady.
const readyPollInterval = 100 * time.Millisecond

// WaitForReady polls p until it responds or timeout expires.
func WaitForReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.Ping(ctx)
	if err == nil {
		return nil
	}

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("not ready after %s: %w (last error: %w)", timeout, ctx.Err(), err)
		case <-ticker.C:
			if err = p.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
