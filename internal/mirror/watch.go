package mirror

import (
	"context"
	"fmt"
	"time"
)

// Watch runs a cycle immediately and then one per interval until ctx is
// cancelled. Cycle errors do not stop the loop; observe, when non-nil,
// receives every cycle's outcome. Watch returns ctx.Err().
func (e *Engine) Watch(ctx context.Context, interval time.Duration, observe func(*Report, error)) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}

	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("watching source",
		"source", e.translator.SourceRoot(),
		"interval", interval,
	)

	for {
		report, err := e.Synchronize(ctx)
		if observe != nil {
			observe(report, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			e.logger.Info("watch stopping: context cancelled")
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}
