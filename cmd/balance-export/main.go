// Command balance-export fetches one date range from the balance API and
// writes a complete report bundle (charts, CSV, JSON and HTML) to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reebalance/internal/balance"
	"reebalance/internal/config"
	"reebalance/internal/dates"
	"reebalance/internal/graphql"
	"reebalance/internal/logger"
	"reebalance/internal/mocks"
	"reebalance/internal/models"
	"reebalance/internal/reports"
	"reebalance/internal/storage"
)

type options struct {
	start    string
	end      string
	scope    string
	pageSize int
	fallback string
	out      string
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("balance-export", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.start, "start", "", "first day of the range (YYYY-MM-DD), defaults to one month back")
	fs.StringVar(&o.end, "end", "", "last day of the range (YYYY-MM-DD), defaults to today")
	fs.StringVar(&o.scope, "scope", cfg.DefaultTimeScope, "time scope: hour, day, month or year")
	fs.IntVar(&o.pageSize, "page-size", cfg.DefaultPageSize, "records per page in the report table")
	fs.StringVar(&o.fallback, "fallback", config.FallbackFullRange, "statistics fallback: off, page or full-range")
	fs.StringVar(&o.out, "out", cfg.LocalReportsDir, "directory the report folder is written under")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

// buildQuery resolves the flags into a query, filling missing bounds from
// the configured default window
func buildQuery(o options, cfg *config.Config, now time.Time) (balance.Query, error) {
	loc := cfg.Location()
	rng := dates.MonthsBack(now, cfg.DefaultMonthsBack, loc)
	if o.start != "" || o.end != "" {
		parsed, err := dates.ParseInputRange(o.start, o.end, loc)
		if err != nil {
			return balance.Query{}, err
		}
		if !parsed.Start.IsZero() {
			rng.Start = parsed.Start
		}
		if !parsed.End.IsZero() {
			rng.End = parsed.End
		}
	}
	if err := dates.ValidateRange(rng); err != nil {
		return balance.Query{}, err
	}

	if err := config.ValidateFallback(o.fallback); err != nil {
		return balance.Query{}, err
	}

	scope, err := models.ParseTimeScope(o.scope)
	if err != nil {
		return balance.Query{}, err
	}
	p := models.DefaultPagination()
	p.PageSize = o.pageSize
	if err := p.Validate(); err != nil {
		return balance.Query{}, err
	}
	return balance.Query{Range: rng, Scope: scope, Pagination: p}, nil
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat, cfg.Environment); err != nil {
		return err
	}
	log := logger.Component("balance-export")

	o, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}
	q, err := buildQuery(o, cfg, time.Now())
	if err != nil {
		return err
	}
	loc := cfg.Location()

	var exec graphql.Executor
	if cfg.MockupMode {
		exec = mocks.NewMockService(cfg.MocksDir)
	} else {
		exec = graphql.NewClient(cfg.GraphQLURL, graphql.WithTimeout(cfg.GraphQLTimeout))
	}

	vm, err := balance.Aggregate(ctx, exec, q, balance.Options{Fallback: balance.FallbackMode(o.fallback), Logger: log})
	if err != nil {
		return err
	}
	if vm.Error != "" {
		log.Warn("Some queries failed, report will be partial", map[string]interface{}{"error": vm.Error})
	}

	in := reports.Input{Query: q, View: vm}
	if vm.HasData() {
		if in.Shares, err = balance.Distribution(ctx, exec, q, vm.Data); err != nil {
			log.Warn("Generation distribution unavailable", map[string]interface{}{"error": err.Error()})
		}
	}
	if raw, err := graphql.FetchLatest(ctx, exec); err != nil {
		log.Warn("Latest snapshot unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		in.Latest = balance.NormalizeLatest(raw, loc)
	}

	store, err := storage.NewLocalStorageClient(o.out)
	if err != nil {
		return err
	}
	defer store.Close()

	htmlBuilder, err := reports.NewHTMLBuilder()
	if err != nil {
		return err
	}
	generator := reports.NewReportGenerator(
		reports.NewFileGenerator(htmlBuilder, loc, balance.Alignment(cfg.SeriesAlignment)),
		reports.NewStorageOrchestrator(store),
		nil,
	)
	result, err := generator.GenerateCompleteReport(ctx, in)
	if err != nil {
		return err
	}

	log.Info("Report written", map[string]interface{}{
		"folder":  result.FolderPath,
		"records": result.Records,
		"files":   len(result.Files),
	})
	fmt.Println(store.BaseDir() + "/" + result.FolderPath + "/" + storage.ReportIndexFile)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "balance-export: %v\n", err)
		os.Exit(1)
	}
}
