// Package refresh keeps balance views current: a poller for the latest
// snapshot and a ticker that retries the dashboard aggregator.
package refresh

import (
	"context"
	"sync"
	"time"

	"reebalance/internal/balance"
	"reebalance/internal/graphql"
	"reebalance/internal/logger"
	"reebalance/internal/metrics"
	"reebalance/internal/models"
)

// DefaultLatestInterval is how often the latest snapshot is re-queried
const DefaultLatestInterval = 30 * time.Second

// FetchFunc loads one latest snapshot. A nil view with a nil error means
// the backend has no snapshot yet.
type FetchFunc func(ctx context.Context) (*models.LatestView, error)

// LatestFetcher returns a FetchFunc over the latest-snapshot query
func LatestFetcher(exec graphql.Executor, loc *time.Location) FetchFunc {
	return func(ctx context.Context) (*models.LatestView, error) {
		raw, err := graphql.FetchLatest(ctx, exec)
		if err != nil {
			return nil, err
		}
		return balance.NormalizeLatest(raw, loc), nil
	}
}

// Status is a snapshot of the poller state
type Status struct {
	Data               *models.LatestView `json:"data"`
	Error              string             `json:"error,omitempty"`
	Loading            bool               `json:"loading"`
	ManuallyRefreshing bool               `json:"manuallyRefreshing"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// ShowError reports whether the error should replace the view, which is
// only the case while no snapshot has ever loaded.
func (s Status) ShowError() bool {
	return s.Error != "" && s.Data == nil
}

// Poller periodically reloads the latest snapshot. The last good snapshot
// stays visible through failures.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	metrics  *metrics.Metrics
	log      *logger.Logger

	mu        sync.Mutex
	data      *models.LatestView
	lastErr   string
	updatedAt time.Time
	inFlight  int
	manual    int
	issued    uint64
	applied   uint64
	now       func() time.Time
}

// NewPoller creates a poller; a non-positive interval uses the default
func NewPoller(fetch FetchFunc, interval time.Duration, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = DefaultLatestInterval
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
		metrics:  m,
		log:      logger.Component("latest-poller"),
		now:      time.Now,
	}
}

// Interval returns the polling period
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run fetches immediately and then once per interval until ctx is done.
// Failed ticks are logged and never stop the loop.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("Starting latest snapshot poller", map[string]interface{}{
		"interval": p.interval.String(),
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.load(ctx, "tick")
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Latest snapshot poller stopped", nil)
			return
		case <-ticker.C:
			p.load(ctx, "tick")
		}
	}
}

// Refresh reloads the snapshot on demand. ManuallyRefreshing stays set
// for the whole call.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.manual++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.manual--
		p.mu.Unlock()
	}()

	return p.load(ctx, "manual")
}

// Status returns the current state
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Data:               p.data,
		Error:              p.lastErr,
		Loading:            p.inFlight > 0,
		ManuallyRefreshing: p.manual > 0,
		UpdatedAt:          p.updatedAt,
	}
}

func (p *Poller) load(ctx context.Context, trigger string) error {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.inFlight++
	p.mu.Unlock()

	view, err := p.fetch(ctx)
	p.metrics.PollTick("latest", err)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--

	// an older request finishing late must not overwrite a newer result
	if seq < p.applied {
		return err
	}
	p.applied = seq

	if err != nil {
		p.lastErr = err.Error()
		p.log.Warn("Latest snapshot refresh failed", map[string]interface{}{
			"trigger":  trigger,
			"error":    err.Error(),
			"has_data": p.data != nil,
		})
		return err
	}

	p.lastErr = ""
	if view != nil {
		p.data = view
	}
	p.updatedAt = p.now()
	p.log.Debug("Latest snapshot refreshed", map[string]interface{}{"trigger": trigger})
	return nil
}
