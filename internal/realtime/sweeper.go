package realtime

import (
	"context"
	"log/slog"
	"time"
)

const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically prunes registry entries whose queues are gone.
// Broadcast-time pruning keeps busy channels tight; the sweeper catches
// handles from connections that vanished without a close frame and whose
// channels see no traffic.
type Sweeper struct {
	registry *Registry
	interval time.Duration
}

func NewSweeper(registry *Registry, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{registry: registry, interval: interval}
}

// Run blocks until ctx is cancelled, pruning on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.registry.PruneAll()
		case <-ctx.Done():
			slog.Info("presence sweeper stopping")
			return
		}
	}
}
