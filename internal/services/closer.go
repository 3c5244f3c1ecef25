package services

import (
	"context"
	"time"

	applog "auctionhouse/internal/log"
)

// Closer periodically settles expired auctions.
type Closer struct {
	Lifecycle *LifecycleService
	Interval  time.Duration
}

func (c *Closer) Run(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Closer) sweep(ctx context.Context) {
	closed, err := c.Lifecycle.CloseExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			applog.Error(nil, "closer.sweep", err, nil)
		}
		return
	}
	if len(closed) > 0 {
		ids := make([]string, 0, len(closed))
		for _, cl := range closed {
			ids = append(ids, cl.ItemID+":"+string(cl.State))
		}
		applog.Info(nil, "closer.sweep", map[string]any{"closed": len(closed), "items": ids})
	}
}
