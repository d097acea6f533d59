package refresh

import (
	"context"
	"time"

	"reebalance/internal/logger"
	"reebalance/internal/metrics"
)

// DefaultDashboardInterval is how often the current dashboard view is retried
const DefaultDashboardInterval = 60 * time.Second

// Retrier is satisfied by *balance.Aggregator
type Retrier interface {
	Retry(ctx context.Context)
}

// AutoRefresh calls r.Retry once per interval until ctx is done
func AutoRefresh(ctx context.Context, r Retrier, interval time.Duration, m *metrics.Metrics) {
	if interval <= 0 {
		interval = DefaultDashboardInterval
	}
	log := logger.Component("dashboard-refresh")
	log.Info("Starting dashboard auto-refresh", map[string]interface{}{
		"interval": interval.String(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Dashboard auto-refresh stopped", nil)
			return
		case <-ticker.C:
			r.Retry(ctx)
			m.PollTick("dashboard", nil)
		}
	}
}
