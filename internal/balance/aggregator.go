package balance

import (
	"context"
	"sync"

	"reebalance/internal/dates"
	"reebalance/internal/graphql"
	"reebalance/internal/logger"
	"reebalance/internal/metrics"
	"reebalance/internal/models"
	"reebalance/internal/stats"
)

// Query is the full set of inputs of one balance view
type Query struct {
	Range      models.DateRange      `json:"range"`
	Scope      models.TimeScope      `json:"scope"`
	Pagination models.PaginationSpec `json:"pagination"`
}

// Equal reports whether two queries would issue the same fetches
func (q Query) Equal(o Query) bool {
	return q.Range.Equal(o.Range) && q.Scope == o.Scope && q.Pagination == o.Pagination
}

// ResetPage moves next back to the first page when anything other than
// the page number changed since prev.
func ResetPage(prev, next Query) Query {
	p, n := prev.Pagination, next.Pagination
	p.Page, n.Page = 0, 0
	if !prev.Range.Equal(next.Range) || prev.Scope != next.Scope || p != n {
		next.Pagination.Page = 1
	}
	return next
}

// FallbackMode selects local statistics when the backend query fails
type FallbackMode string

const (
	FallbackOff       FallbackMode = "off"
	FallbackPage      FallbackMode = "page"
	FallbackFullRange FallbackMode = "full-range"
)

// Options tune an Aggregator
type Options struct {
	Fallback FallbackMode
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

type slotKind int

const (
	slotRecords slotKind = iota
	slotStats
	slotGeneration
	slotDemand
	slotRenewable
	// slotFullRange only runs as a statistics fallback
	slotFullRange
	numSlots
)

var slotNames = [numSlots]string{"records", "statistics", "generation", "demand", "renewable", "full-range"}

var seriesIndicators = map[slotKind]string{
	slotGeneration: graphql.IndicatorGeneration,
	slotDemand:     graphql.IndicatorDemand,
	slotRenewable:  graphql.IndicatorRenewable,
}

// slot tracks the latest dispatched and latest settled request of one fetch
type slot struct {
	seq  uint64
	done uint64
}

func (s slot) inFlight() bool {
	return s.seq != s.done
}

// Aggregator issues the five balance queries for a Query and folds their
// results into a ViewModel. Results of superseded requests are discarded.
type Aggregator struct {
	exec graphql.Executor
	opts Options
	log  *logger.Logger

	mu          sync.Mutex
	query       Query
	hasQuery    bool
	slots       [numSlots]slot
	page        *models.RecordsPage
	summary     *models.StatisticsSummary
	statsFailed bool
	fullRange   *models.StatisticsSummary
	series      [3][]models.TimeSeriesPoint
	errMsg      string
	idle        chan struct{}
	subs        map[int]func(models.ViewModel)
	nextSub     int
}

// NewAggregator creates an aggregator over a shared executor
func NewAggregator(exec graphql.Executor, opts Options) *Aggregator {
	if opts.Fallback == "" {
		opts.Fallback = FallbackOff
	}
	if opts.Logger == nil {
		opts.Logger = logger.Component("aggregator")
	}
	idle := make(chan struct{})
	close(idle)
	return &Aggregator{
		exec: exec,
		opts: opts,
		log:  opts.Logger,
		idle: idle,
		subs: make(map[int]func(models.ViewModel)),
	}
}

// Subscribe registers fn to receive a fresh ViewModel whenever a fetch
// settles or inputs change. Callbacks may run concurrently. The returned
// func unsubscribes.
func (a *Aggregator) Subscribe(fn func(models.ViewModel)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Query returns the current inputs and whether any were set
func (a *Aggregator) Query() (Query, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query, a.hasQuery
}

// Update re-evaluates the view for q. An unchanged query is a no-op.
// Fetches run under ctx, so pass a context that outlives the caller when
// results should survive it. In-flight fetches of the previous query are
// not cancelled; their results are dropped when they settle.
func (a *Aggregator) Update(ctx context.Context, q Query) {
	a.mu.Lock()
	if a.hasQuery && a.query.Equal(q) {
		a.mu.Unlock()
		return
	}
	a.query = q
	a.hasQuery = true
	a.page = nil
	a.summary = nil
	a.statsFailed = false
	a.fullRange = nil
	a.series = [3][]models.TimeSeriesPoint{}
	a.errMsg = ""

	if !q.Range.Valid() {
		a.log.Debug("Skipping fetch for incomplete date range", nil)
		a.invalidateLocked()
	} else {
		a.dispatchLocked(ctx)
	}
	vm, subs := a.snapshotLocked()
	a.mu.Unlock()

	notify(subs, vm)
}

// Retry clears the error and reissues all five fetches. Data from the
// previous round stays visible until the new results arrive. Safe to call
// while a previous round is in flight.
func (a *Aggregator) Retry(ctx context.Context) {
	a.mu.Lock()
	a.errMsg = ""
	if a.hasQuery && a.query.Range.Valid() {
		a.dispatchLocked(ctx)
	}
	vm, subs := a.snapshotLocked()
	a.mu.Unlock()

	notify(subs, vm)
}

// NextPage moves to the following page when the backend reports one
func (a *Aggregator) NextPage(ctx context.Context) bool {
	return a.movePage(ctx, 1)
}

// PreviousPage moves to the preceding page when there is one
func (a *Aggregator) PreviousPage(ctx context.Context) bool {
	return a.movePage(ctx, -1)
}

func (a *Aggregator) movePage(ctx context.Context, delta int) bool {
	a.mu.Lock()
	q := a.query
	ok := a.hasQuery && a.page != nil
	if ok && delta > 0 {
		ok = a.page.HasNextPage
	}
	if ok && delta < 0 {
		ok = a.page.HasPreviousPage && q.Pagination.Page > 1
	}
	a.mu.Unlock()

	if !ok {
		return false
	}
	q.Pagination.Page += delta
	a.Update(ctx, q)
	return true
}

// Wait blocks until no fetch is in flight or ctx is done
func (a *Aggregator) Wait(ctx context.Context) error {
	a.mu.Lock()
	idle := a.idle
	a.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ViewModel builds a fresh snapshot of the current state
func (a *Aggregator) ViewModel() models.ViewModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewModelLocked()
}

// invalidateLocked marks every slot settled without fetching, so any
// outstanding response is treated as stale.
func (a *Aggregator) invalidateLocked() {
	for k := range a.slots {
		a.slots[k].seq++
		a.slots[k].done = a.slots[k].seq
	}
	a.markIdleLocked()
}

func (a *Aggregator) dispatchLocked(ctx context.Context) {
	if !a.loadingLocked() {
		a.idle = make(chan struct{})
	}
	// a pending full-range walk belongs to the previous round
	a.slots[slotFullRange].seq++
	a.slots[slotFullRange].done = a.slots[slotFullRange].seq

	for k := slotRecords; k <= slotRenewable; k++ {
		a.startLocked(ctx, k)
	}
}

func (a *Aggregator) startLocked(ctx context.Context, k slotKind) {
	a.slots[k].seq++
	seq := a.slots[k].seq
	q := a.query
	a.opts.Metrics.FetchStarted()

	go func() {
		result, err := a.fetch(ctx, k, q)
		a.settle(ctx, k, seq, result, err)
	}()
}

func (a *Aggregator) fetch(ctx context.Context, k slotKind, q Query) (interface{}, error) {
	switch k {
	case slotRecords:
		return graphql.FetchRecords(ctx, a.exec, q.Range, q.Scope, q.Pagination)
	case slotStats:
		return graphql.FetchStatistics(ctx, a.exec, q.Range, q.Scope)
	case slotFullRange:
		items, err := FetchAllRecords(ctx, a.exec, q.Range, q.Scope)
		if err != nil {
			return nil, err
		}
		summary := stats.Summarize(NormalizeAll(items, nil), q.Range, q.Scope, models.StatisticsFromFullRange)
		return &summary, nil
	default:
		return graphql.FetchTimeSeries(ctx, a.exec, q.Range, q.Scope, seriesIndicators[k])
	}
}

func (a *Aggregator) settle(ctx context.Context, k slotKind, seq uint64, result interface{}, err error) {
	a.mu.Lock()
	a.opts.Metrics.FetchSettled()

	if a.slots[k].seq != seq {
		a.mu.Unlock()
		a.log.Debug("Discarding stale response", map[string]interface{}{"slot": slotNames[k]})
		return
	}
	a.slots[k].done = seq

	switch k {
	case slotRecords:
		if err != nil {
			a.page = nil
			a.recordErrorLocked(k, err)
		} else {
			a.page = result.(*models.RecordsPage)
		}
	case slotStats:
		if err != nil {
			a.summary = nil
			a.statsFailed = true
			a.recordErrorLocked(k, err)
			if a.opts.Fallback == FallbackFullRange {
				a.startLocked(ctx, slotFullRange)
			}
		} else {
			a.statsFailed = false
			a.summary = stats.FromRaw(result.(*models.RawStatistics), dates.ParseOptional)
		}
	case slotFullRange:
		if err != nil {
			a.log.Warn("Full-range statistics fallback failed", map[string]interface{}{"error": err.Error()})
		} else {
			a.fullRange = result.(*models.StatisticsSummary)
		}
	default:
		idx := int(k - slotGeneration)
		if err != nil {
			// series are supplementary and degrade to empty
			a.log.Warn("Time series fetch failed", map[string]interface{}{
				"indicator": seriesIndicators[k],
				"error":     err.Error(),
			})
			a.series[idx] = nil
		} else {
			a.series[idx] = ToPoints(result.([]models.RawPoint))
		}
	}

	if !a.loadingLocked() {
		a.markIdleLocked()
	}
	vm, subs := a.snapshotLocked()
	a.mu.Unlock()

	notify(subs, vm)
}

// recordErrorLocked keeps the first essential error of the round
func (a *Aggregator) recordErrorLocked(k slotKind, err error) {
	a.log.Error("Balance fetch failed", err, map[string]interface{}{"slot": slotNames[k]})
	if a.errMsg == "" {
		a.errMsg = err.Error()
	}
}

func (a *Aggregator) markIdleLocked() {
	select {
	case <-a.idle:
	default:
		close(a.idle)
	}
}

func (a *Aggregator) loadingLocked() bool {
	for _, s := range a.slots {
		if s.inFlight() {
			return true
		}
	}
	return false
}

// statisticsLocked picks the backend summary, or a local one per fallback mode
func (a *Aggregator) statisticsLocked() *models.StatisticsSummary {
	if a.summary != nil || !a.statsFailed {
		return a.summary
	}
	switch a.opts.Fallback {
	case FallbackPage:
		if a.page == nil {
			return nil
		}
		s := stats.Summarize(NormalizeAll(a.page.Items, nil), a.query.Range, a.query.Scope, models.StatisticsFromPage)
		return &s
	case FallbackFullRange:
		return a.fullRange
	}
	return nil
}

func (a *Aggregator) viewModelLocked() models.ViewModel {
	summary := a.statisticsLocked()

	vm := models.ViewModel{
		Loading:    a.loadingLocked(),
		Data:       []models.NormalizedRecord{},
		Statistics: summary,
		TimeSeries: models.TimeSeries{
			Generation: nonNil(a.series[0]),
			Demand:     nonNil(a.series[1]),
			Renewable:  nonNil(a.series[2]),
		},
		Error: a.errMsg,
		Retry: a.Retry,
	}
	if a.page != nil {
		vm.Data = NormalizeAll(a.page.Items, summary)
		vm.Pagination = &models.PaginationMeta{
			TotalCount:      a.page.TotalCount,
			Page:            a.page.Page,
			PageSize:        a.page.PageSize,
			HasNextPage:     a.page.HasNextPage,
			HasPreviousPage: a.page.HasPreviousPage,
		}
	}
	return vm
}

func (a *Aggregator) snapshotLocked() (models.ViewModel, []func(models.ViewModel)) {
	if len(a.subs) == 0 {
		return models.ViewModel{}, nil
	}
	subs := make([]func(models.ViewModel), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	return a.viewModelLocked(), subs
}

func notify(subs []func(models.ViewModel), vm models.ViewModel) {
	for _, fn := range subs {
		fn(vm)
	}
}

func nonNil(points []models.TimeSeriesPoint) []models.TimeSeriesPoint {
	if points == nil {
		return []models.TimeSeriesPoint{}
	}
	return points
}

// Aggregate runs one full round for q and returns the settled view
func Aggregate(ctx context.Context, exec graphql.Executor, q Query, opts Options) (models.ViewModel, error) {
	a := NewAggregator(exec, opts)
	a.Update(ctx, q)
	if err := a.Wait(ctx); err != nil {
		return a.ViewModel(), err
	}
	return a.ViewModel(), nil
}
