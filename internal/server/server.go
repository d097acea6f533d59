package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"reebalance/internal/balance"
	"reebalance/internal/charts"
	"reebalance/internal/config"
	"reebalance/internal/dates"
	"reebalance/internal/graphql"
	"reebalance/internal/logger"
	"reebalance/internal/metrics"
	"reebalance/internal/models"
	"reebalance/internal/refresh"
	"reebalance/internal/reports"
	"reebalance/internal/storage"
)

// Server represents the main application server
type Server struct {
	Config         *config.Config
	Executor       graphql.Executor
	Dashboard      *balance.Aggregator
	Latest         *refresh.Poller
	Reports        *reports.ReportGenerator
	HTML           *reports.HTMLBuilder
	Charts         *charts.ChartGenerator
	Storage        storage.StorageClient
	Metrics        *metrics.Metrics
	DeploymentMode storage.DeploymentMode

	// fetches outlive the request that triggered them
	baseCtx       context.Context
	viewOpts      balance.Options
	loc           *time.Location
	align         balance.Alignment
	generateMutex sync.Mutex
	log           *logger.Logger
	now           func() time.Time
}

// NewServer creates a new server instance. Fetches started by requests
// run under ctx, so cancelling it stops all background work.
func NewServer(ctx context.Context, cfg *config.Config, exec graphql.Executor, m *metrics.Metrics) (*Server, error) {
	log := logger.Component("server")
	loc := cfg.Location()
	align := balance.Alignment(cfg.SeriesAlignment)

	mode := storage.ModeFor(cfg)
	store, err := storage.NewStorageClient(ctx, mode, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	htmlBuilder, err := reports.NewHTMLBuilder()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize HTML builder: %w", err)
	}

	files := reports.NewFileGenerator(htmlBuilder, loc, align)
	log.Info("Server initialized", map[string]interface{}{
		"deployment": string(mode),
		"fallback":   cfg.StatisticsFallback,
		"alignment":  cfg.SeriesAlignment,
		"mockup":     cfg.MockupMode,
	})

	viewOpts := balance.Options{
		Fallback: balance.FallbackMode(cfg.StatisticsFallback),
		Metrics:  m,
	}

	return &Server{
		Config:         cfg,
		Executor:       exec,
		Dashboard:      balance.NewAggregator(exec, viewOpts),
		Latest:         refresh.NewPoller(refresh.LatestFetcher(exec, loc), cfg.LatestRefreshInterval, m),
		Reports:        reports.NewReportGenerator(files, reports.NewStorageOrchestrator(store), m),
		HTML:           htmlBuilder,
		Charts:         charts.NewChartGenerator(loc),
		Storage:        store,
		Metrics:        m,
		DeploymentMode: mode,
		baseCtx:        ctx,
		viewOpts:       viewOpts,
		loc:            loc,
		align:          align,
		log:            log,
		now:            time.Now,
	}, nil
}

// DefaultQuery is the dashboard view before any filter is applied
func (s *Server) DefaultQuery() balance.Query {
	p := models.DefaultPagination()
	p.PageSize = s.Config.DefaultPageSize
	scope, err := models.ParseTimeScope(s.Config.DefaultTimeScope)
	if err != nil {
		scope = models.ScopeDay
	}
	return balance.Query{
		Range:      dates.MonthsBack(s.now(), s.Config.DefaultMonthsBack, s.loc),
		Scope:      scope,
		Pagination: p,
	}
}

// StartBackground loads the default dashboard view and starts the latest
// snapshot poller and the dashboard auto-refresh. The auto-refresh retries
// whatever query the dashboard holds at each tick. Both stop with ctx.
func (s *Server) StartBackground(ctx context.Context) {
	unsubscribe := s.Dashboard.Subscribe(func(vm models.ViewModel) {
		if vm.Loading {
			return
		}
		fields := map[string]interface{}{"records": len(vm.Data)}
		if vm.Error != "" {
			fields["error"] = vm.Error
		}
		s.log.Debug("Dashboard view settled", fields)
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	s.Dashboard.Update(ctx, s.DefaultQuery())
	go s.Latest.Run(ctx)
	if s.Config.DashboardRefreshInterval > 0 {
		go refresh.AutoRefresh(ctx, s.Dashboard, s.Config.DashboardRefreshInterval, s.Metrics)
	}
}

// route registers h on r with per-route request metrics
func (s *Server) route(r *mux.Router, path string, h http.HandlerFunc, methods ...string) {
	r.Handle(path, s.Metrics.WrapHandler(path, h)).Methods(methods...)
}

// SetupRoutes configures HTTP routes for the server
func (s *Server) SetupRoutes() http.Handler {
	r := mux.NewRouter()

	s.route(r, "/health", s.HandleHealth, http.MethodGet)

	s.route(r, "/api/balance", s.HandleBalance, http.MethodGet)
	s.route(r, "/api/balance/retry", s.HandleRetry, http.MethodPost)
	s.route(r, "/api/balance/next", s.HandleNextPage, http.MethodPost)
	s.route(r, "/api/balance/previous", s.HandlePreviousPage, http.MethodPost)
	s.route(r, "/api/records/{id}", s.HandleRecord, http.MethodGet)
	s.route(r, "/api/latest", s.HandleLatest, http.MethodGet)
	s.route(r, "/api/latest/refresh", s.HandleLatestRefresh, http.MethodPost)
	s.route(r, "/api/distribution", s.HandleDistribution, http.MethodGet)
	s.route(r, "/api/presets", s.HandlePresets, http.MethodGet)

	s.route(r, "/export.csv", s.HandleExport, http.MethodGet)
	s.route(r, "/charts/{name:[a-z]+}.png", s.HandleChartPNG, http.MethodGet)
	s.route(r, "/charts/{name:[a-z]+}.html", s.HandleChartHTML, http.MethodGet)
	s.route(r, "/reports", s.HandleGenerate, http.MethodPost)
	s.route(r, "/reports", s.HandleListReports, http.MethodGet)
	s.route(r, "/files/{path:.+}", s.HandleFileProxy, http.MethodGet)
	r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	s.route(r, "/", s.HandleRoot, http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return withMiddleware(r, s.log)
}

// Close cleans up server resources
func (s *Server) Close() error {
	if s.Storage != nil {
		return s.Storage.Close()
	}
	return nil
}
