package actions

import (
	"context"
	"fmt"

	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/pipeline"
	"github.com/sonofy/dwhpipe/stats"
)

type CreateTablesConfig struct {
	CommonConfig
}

type EtlConfig struct {
	CommonConfig
	CreateTables      bool
	FullRefresh       bool
	CheckSources      bool
	SingleTransaction bool
}

type RefreshConfig struct {
	CommonConfig
	SingleTransaction bool
}

// RunCreateTables drops and recreates every table.
func RunCreateTables(cfg *CreateTablesConfig) error {
	return runWithRunner(&cfg.CommonConfig, false, func(ctx context.Context, r *pipeline.Runner, w *warehouse) error {
		return r.CreateTables(ctx)
	})
}

// RunEtl loads the staging tables and inserts into the fact and dimension tables.
func RunEtl(cfg *EtlConfig) error {
	return runWithRunner(&cfg.CommonConfig, true, func(ctx context.Context, r *pipeline.Runner, w *warehouse) error {
		return r.Run(ctx, pipeline.Options{
			CreateTables:      cfg.CreateTables,
			FullRefresh:       cfg.FullRefresh,
			SingleTransaction: cfg.SingleTransaction,
			CheckSources:      cfg.CheckSources,
			CopyParams:        copyParams(w.cfg),
		})
	})
}

// RunPipeline creates the tables then runs the ETL.
func RunPipeline(cfg *EtlConfig) error {
	cfg.CreateTables = true
	return RunEtl(cfg)
}

// RunRefresh truncates the fact and dimension tables and re-runs the inserts.
func RunRefresh(cfg *RefreshConfig) error {
	return runWithRunner(&cfg.CommonConfig, false, func(ctx context.Context, r *pipeline.Runner, w *warehouse) error {
		return r.Refresh(ctx, cfg.SingleTransaction)
	})
}

// runWithRunner sets up logging, signal handling, the warehouse connection and a Runner, then calls fn.
// Set loads when fn reads the staging sources. The connection is closed on every path out. A summary
// of the steps is printed unless this is a dry run.
func runWithRunner(cc *CommonConfig, loads bool, fn func(ctx context.Context, r *pipeline.Runner, w *warehouse) error) error {
	if err := cc.validate(); err != nil {
		return err
	}
	log, runId := newRunLogger(cc)
	ctx, cancel := signalContext()
	defer cancel()
	w, err := openWarehouse(ctx, log, cc, loads)
	if err != nil {
		log.Error(err)
		return err
	}
	defer w.close()
	writer, err := w.stagingWriter(ctx)
	if err != nil {
		log.Error(err)
		return err
	}
	runStats := stats.NewRunStats(log)
	r, err := pipeline.NewRunner(&pipeline.RunnerConfig{
		Log:      log,
		Db:       w.db,
		Catalog:  w.cat,
		Stats:    runStats,
		Resolver: w.resolver(),
		Writer:   writer,
		DryRun:   cc.DryRun,
		Out:      cc.out(),
	})
	if err != nil {
		return err
	}
	err = fn(ctx, r, w)
	if !cc.DryRun {
		printSummary(log, cc, runId, runStats, err)
	}
	if err != nil {
		log.Error(err)
	}
	return err
}

func printSummary(log logger.Logger, cc *CommonConfig, runId string, runStats *stats.RunStatsManager, err error) {
	runStats.LogStats()
	status := "complete"
	if err != nil {
		status = "failed"
	}
	printLogFn := getPrintLogFunc(log, cc.out(), true)
	printLogFn(fmt.Sprintf("Run %v %v", runId, status))
	runStats.RenderTable(cc.out())
}
